package adapter

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/surface-shm/api"
	"github.com/srediag/surface-shm/mapper"
	"github.com/srediag/surface-shm/pkg/arena"
	"github.com/srediag/surface-shm/pkg/region"
	"github.com/srediag/surface-shm/surface"
)

type nopComposer struct{}

func (nopComposer) SetLayer(api.Token, int32) error                              { return nil }
func (nopComposer) SetPosition(api.Token, int32, int32) error                    { return nil }
func (nopComposer) SetSize(api.Token, uint32, uint32) error                      { return nil }
func (nopComposer) Hide(api.Token) error                                         { return nil }
func (nopComposer) Show(api.Token, int32) error                                  { return nil }
func (nopComposer) Freeze(api.Token) error                                       { return nil }
func (nopComposer) Unfreeze(api.Token) error                                     { return nil }
func (nopComposer) SetFlags(api.Token, api.SurfaceFlags, api.SurfaceFlags) error { return nil }
func (nopComposer) SetTransparentRegionHint(api.Token, region.Region) error      { return nil }
func (nopComposer) SetAlpha(api.Token, float32) error                            { return nil }
func (nopComposer) SetMatrix(api.Token, float32, float32, float32, float32) error {
	return nil
}
func (nopComposer) SetFreezeTint(api.Token, uint32) error { return nil }
func (nopComposer) SetBufferCount(api.Token, int) error   { return nil }
func (nopComposer) RequestBuffer(api.Token, int32, uint32, uint32, api.PixelFormat, api.Usage) (*api.Buffer, error) {
	return nil, nil
}
func (nopComposer) Signal() error                  { return nil }
func (nopComposer) DestroySurface(api.Token) error { return nil }

func healthFixture(t *testing.T) (*surface.Session, *surface.SharedRing) {
	t.Helper()
	conf := surface.DefaultConfig()
	conf.DequeuePollInterval = 200 * time.Microsecond
	conf.DequeueMaxWait = 30 * time.Millisecond

	ring, err := surface.NewSharedRing(conf, api.Token(1), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ring.Close() })

	m := mapper.New(mapper.Config{
		Arena:             arena.New(arena.Config{}),
		AllowHeapFallback: true,
	})
	ctrl := surface.NewControl(nopComposer{}, surface.CreationData{
		Token:    api.Token(1),
		Identity: 1,
		Width:    16,
		Height:   16,
		Format:   api.PixelFormatRGBA8888,
	}, 0)
	sess := surface.NewSession(ctrl, ring, m, conf)
	t.Cleanup(func() { _ = sess.Close() })
	return sess, ring
}

func TestHealthyProbes(t *testing.T) {
	sess, ring := healthFixture(t)
	h := NewHealthHandler(
		map[string]*surface.Session{"s": sess},
		map[string]*surface.SharedRing{"s": ring},
	)

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 200, rec.Code)

	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestLivenessFailsOnPoisonedRing(t *testing.T) {
	sess, ring := healthFixture(t)
	h := NewHealthHandler(
		map[string]*surface.Session{"s": sess},
		map[string]*surface.SharedRing{"s": ring},
	)

	ring.Poison(assert.AnError)
	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestLivenessFailsOnStaleIdentity(t *testing.T) {
	sess, ring := healthFixture(t)
	h := NewHealthHandler(map[string]*surface.Session{"s": sess}, nil)

	ring.SetIdentity(2)
	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestReadinessFailsWithoutFreeSlots(t *testing.T) {
	sess, ring := healthFixture(t)
	h := NewHealthHandler(nil, map[string]*surface.SharedRing{"s": ring})
	_ = sess

	for i := 0; i < 2; i++ {
		_, err := ring.Dequeue()
		require.NoError(t, err)
	}
	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)
}
