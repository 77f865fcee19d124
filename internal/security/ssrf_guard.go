package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// maxURLLength はユーザーが指定できるURLの最大長。
const maxURLLength = 2048

// URLGuard は外部URLを扱う際のSSRF対策を提供する。
type URLGuard interface {
	// NewSafeClient は外部IdP等への通信に使うHTTPクライアントを生成する。
	// 接続時にDNS解決後のIPアドレスを検証し、内部ネットワークへの接続を拒否する。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL はユーザーが指定したURL（記事のカバー画像など）を静的に検証する。
	// サーバーはこのURLへ接続しないが、内部アドレスを指すURLは保存させない。
	ValidateURL(rawURL string) error
}

// ErrUnsafeURL はURLが許可されない場合のエラー。
var ErrUnsafeURL = errors.New("unsafe url")

type urlGuard struct{}

// NewURLGuard はURLGuardを生成する。
func NewURLGuard() *urlGuard {
	return &urlGuard{}
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを生成する。
// 許可するのはhttpsの443番ポートのみ。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLのスキーム・ホストを検証する。DNS解決は行わない。
func (g *urlGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrUnsafeURL)
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("%w: too long", ErrUnsafeURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q", ErrUnsafeURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrUnsafeURL)
	}
	if parsed.User != nil {
		return fmt.Errorf("%w: credentials in url", ErrUnsafeURL)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !isPublicAddr(addr) {
			return fmt.Errorf("%w: address %s", ErrUnsafeURL, addr)
		}
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: host %s", ErrUnsafeURL, host)
	}

	return nil
}

// isPublicAddr はインターネット上のグローバルなユニキャストアドレスかを判定する。
// 169.254.169.254 などのクラウドメタデータアドレスはリンクローカルとして弾かれる。
func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate()
}

// compile-time interface check
var _ URLGuard = (*urlGuard)(nil)
