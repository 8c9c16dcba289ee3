package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 16, cfg.Enrollment.MaxParticipantsPerCourse)
	assert.Equal(t, 20, cfg.Enrollment.DefaultSessionCapacity)
	assert.Equal(t, 2*time.Minute, cfg.Cache.CourseTTL)
	assert.Equal(t, "skillpath:notifications", cfg.Notifications.ChannelPrefix)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Maintenance.Enabled)
	assert.Equal(t, "@hourly", cfg.Maintenance.TokenPurgeSpec)
	assert.Equal(t, time.Minute, cfg.Maintenance.Timeout)
}

func TestOverridesFallBackOnInvalidValues(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("MAX_PARTICIPANTS_PER_COURSE", -3)
	v.Set("COURSE_CACHE_TTL", "soon")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)
	assert.Equal(t, 16, cfg.Enrollment.MaxParticipantsPerCourse)
	assert.Equal(t, 2*time.Minute, cfg.Cache.CourseTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
