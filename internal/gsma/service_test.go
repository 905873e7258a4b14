package gsma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	dErrors "drs/pkg/domain-errors"
)

type GSMAServiceSuite struct {
	suite.Suite
	server  *httptest.Server
	redis   *miniredis.Miniredis
	lookups map[string]*Device
	mu      sync.Mutex
	calls   int
	service *Service
}

func TestGSMAServiceSuite(t *testing.T) {
	suite.Run(t, new(GSMAServiceSuite))
}

func (s *GSMAServiceSuite) SetupTest() {
	s.lookups = map[string]*Device{
		"35000000": {ModelName: "A1", BrandName: "Acme", SIMSlot: "2"},
	}
	s.calls = 0

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		s.mu.Unlock()
		tac := r.URL.Path[len("/tac/"):]
		_ = json.NewEncoder(w).Encode(tacResponse{GSMA: s.lookups[tac]})
	}))

	s.redis = miniredis.RunT(s.T())
	cacheClient := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})

	client, err := NewClient(s.server.URL, nil)
	s.Require().NoError(err)
	s.service, err = New(client, WithCache(NewCache(cacheClient, time.Hour)))
	s.Require().NoError(err)
}

func (s *GSMAServiceSuite) TearDownTest() {
	s.server.Close()
}

func (s *GSMAServiceSuite) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *GSMAServiceSuite) TestDeviceByTAC() {
	ctx := context.Background()

	s.Run("malformed tac is rejected", func() {
		_, err := s.service.DeviceByTAC(ctx, "1234")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("known tac returns the model record", func() {
		device, err := s.service.DeviceByTAC(ctx, "35000000")
		s.Require().NoError(err)
		s.Require().NotNil(device)
		s.Equal("A1", device.ModelName)
		s.Equal("Acme", device.BrandName)
	})

	s.Run("second lookup is served from the cache", func() {
		before := s.callCount()
		device, err := s.service.DeviceByTAC(ctx, "35000000")
		s.Require().NoError(err)
		s.Require().NotNil(device)
		s.Equal(before, s.callCount())
	})

	s.Run("unknown tac returns nil and is cached negatively", func() {
		device, err := s.service.DeviceByTAC(ctx, "99999999")
		s.Require().NoError(err)
		s.Nil(device)

		before := s.callCount()
		device, err = s.service.DeviceByTAC(ctx, "99999999")
		s.Require().NoError(err)
		s.Nil(device)
		s.Equal(before, s.callCount())
	})

	s.Run("expired cache entries trigger a fresh lookup", func() {
		_, err := s.service.DeviceByTAC(ctx, "35000000")
		s.Require().NoError(err)

		s.redis.FastForward(2 * time.Hour)

		before := s.callCount()
		device, err := s.service.DeviceByTAC(ctx, "35000000")
		s.Require().NoError(err)
		s.Require().NotNil(device)
		s.Equal(before+1, s.callCount())
	})
}

func (s *GSMAServiceSuite) TestDeviceByIMEI() {
	device, err := s.service.DeviceByIMEI(context.Background(), "350000001234567")
	s.Require().NoError(err)
	s.Require().NotNil(device)
	s.Equal("A1", device.ModelName)
}
