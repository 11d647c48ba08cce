package correlate

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/hookd/internal/domain"
)

func allow() domain.Decision {
	return domain.Decision{
		Type:   domain.DecisionJSON,
		Source: domain.SourceUser,
		Intent: &domain.DecisionIntent{Allow: true},
	}
}

func TestResolveBeforeTimeout(t *testing.T) {
	mock := clock.NewMock()
	p := New(mock)

	ch := p.Register("req-1", time.Second)
	require.Equal(t, 1, p.Outstanding())

	require.True(t, p.Resolve("req-1", allow()))
	d := <-ch
	assert.Equal(t, domain.SourceUser, d.Source)
	assert.Equal(t, 0, p.Outstanding())
}

func TestTimeoutDeliversPassthrough(t *testing.T) {
	mock := clock.NewMock()
	p := New(mock)

	ch := p.Register("req-1", 250*time.Millisecond)
	mock.Add(300 * time.Millisecond)

	d := <-ch
	assert.Equal(t, domain.DecisionPassthrough, d.Type)
	assert.Equal(t, domain.SourceTimeout, d.Source)
}

func TestResolveAfterTimeoutIsDropped(t *testing.T) {
	mock := clock.NewMock()
	p := New(mock)

	ch := p.Register("req-1", 250*time.Millisecond)
	mock.Add(300 * time.Millisecond)
	<-ch

	// The host already has its fallback; this must not reach the wire.
	assert.False(t, p.Resolve("req-1", allow()))
}

func TestResolveUnknownRequest(t *testing.T) {
	p := New(clock.NewMock())
	assert.False(t, p.Resolve("never-registered", allow()))
}

func TestZeroWindowTimesOutImmediately(t *testing.T) {
	p := New(clock.NewMock())
	ch := p.Register("req-1", 0)

	select {
	case d := <-ch:
		assert.Equal(t, domain.SourceTimeout, d.Source)
	default:
		t.Fatal("expected an immediate fallback decision")
	}
	assert.Equal(t, 0, p.Outstanding())
}

func TestIndependentRequests(t *testing.T) {
	mock := clock.NewMock()
	p := New(mock)

	ch1 := p.Register("req-1", time.Second)
	ch2 := p.Register("req-2", time.Second)

	require.True(t, p.Resolve("req-2", allow()))
	d := <-ch2
	assert.Equal(t, domain.SourceUser, d.Source)

	mock.Add(2 * time.Second)
	d = <-ch1
	assert.Equal(t, domain.SourceTimeout, d.Source)
}
