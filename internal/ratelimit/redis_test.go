package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	client  *redis.Client
	limiter *Redis
	ctx     context.Context
}

func TestRedisSuite(t *testing.T) {
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.limiter = NewRedis(s.client, "test", 2, time.Minute)
	s.ctx = context.Background()
}

func (s *RedisSuite) TearDownTest() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *RedisSuite) TestAllowsUpToRate() {
	for i := 0; i < 2; i++ {
		ok, err := s.limiter.Allow(s.ctx, "1.2.3.4")
		s.Require().NoError(err)
		s.True(ok)
	}

	ok, err := s.limiter.Allow(s.ctx, "1.2.3.4")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisSuite) TestSetsExpiryOnFirstHit() {
	_, err := s.limiter.Allow(s.ctx, "a")
	s.Require().NoError(err)

	s.True(s.mini.Exists("test:a"))
	s.Equal(time.Minute, s.mini.TTL("test:a"))
}

func (s *RedisSuite) TestWindowExpires() {
	for i := 0; i < 3; i++ {
		_, err := s.limiter.Allow(s.ctx, "a")
		s.Require().NoError(err)
	}

	s.mini.FastForward(time.Minute + time.Second)

	ok, err := s.limiter.Allow(s.ctx, "a")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisSuite) TestPrefixesSeparateLimiters() {
	other := NewRedis(s.client, "other", 1, time.Minute)

	ok, err := other.Allow(s.ctx, "a")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.limiter.Allow(s.ctx, "a")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisSuite) TestUnavailableServerReturnsError() {
	s.mini.Close()

	_, err := s.limiter.Allow(s.ctx, "a")
	s.Error(err)
}

func (s *RedisSuite) TestNewRedisClient() {
	client, err := NewRedisClient(s.ctx, "redis://"+s.mini.Addr()+"/0")
	s.Require().NoError(err)
	s.NoError(client.Close())

	_, err = NewRedisClient(s.ctx, "not a url")
	s.Error(err)
}
