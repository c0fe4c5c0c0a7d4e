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

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Settlement.LockTimeout)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Cloudinary.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestAPNsFallsBackToPassSettings(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("apple_pass.type_identifier", "pass.com.example.cafe")
	v.Set("apple_pass.team_id", "ABCDE12345")
	cfg := fromViper(v)
	assert.Equal(t, "pass.com.example.cafe", cfg.APNs.Topic)
	assert.Equal(t, "ABCDE12345", cfg.APNs.TeamID)

	v.Set("apns.topic", "pass.override")
	v.Set("apns.team_id", "ZZZ")
	cfg = fromViper(v)
	assert.Equal(t, "pass.override", cfg.APNs.Topic)
	assert.Equal(t, "ZZZ", cfg.APNs.TeamID)
}

func TestListsAndURLsAreNormalised(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("server.public_base_url", "https://loyalty.example.com/")
	v.Set("server.cors_origins", " https://a.example.com, ,https://b.example.com ")
	v.Set("database.driver", "SQLite")
	cfg := fromViper(v)

	assert.Equal(t, "https://loyalty.example.com", cfg.Server.PublicBaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}
