package filelink

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/adapter/crypto"
	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
	"gitlab.com/judge-dispatch.net/internal/config"
)

func newTestService() (*Service, *crypto.JWTServiceImpl) {
	jwtSvc := crypto.NewJWTService(&config.JwtConfig{Secret: "file-secret"})
	cfg := &config.FileLinkCfg{
		BaseURL:      "https://files.example.com/dl/",
		TTL:          time.Hour,
		EphemeralTTL: time.Minute,
	}
	return NewService(cfg, jwtSvc, logging.NewNopLogger()), jwtSvc
}

func TestGetDownloadLink(t *testing.T) {
	svc, jwtSvc := newTestService()
	ctx := context.Background()

	link, err := svc.GetDownloadLink(ctx, "f-123", nil, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://files.example.com/dl/f-123?token="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	claims, err := jwtSvc.VerifyTokenHMAC(ctx, u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "f-123", claims["fid"])

	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.LessOrEqual(t, int64(exp), time.Now().Add(time.Minute+time.Second).Unix())
}

func TestGetDownloadLinkWithFilename(t *testing.T) {
	svc, _ := newTestService()
	name := "input 1.txt"

	link, err := svc.GetDownloadLink(context.Background(), "f-9", &name, false)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, name, u.Query().Get("filename"))
}

func TestGetDownloadLinkRequiresID(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetDownloadLink(context.Background(), "", nil, true)
	assert.Error(t, err)
}
