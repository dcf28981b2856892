package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// DefaultDeveloperName はイントロスペクションで初めて現れた開発者に付ける名前。
const DefaultDeveloperName = "New User"

const (
	defaultIntrospectionTimeout = 5 * time.Second
	maxIntrospectionBodySize    = 1 << 20
)

// IntrospectionConfig はトークンイントロスペクション（RFC 7662）の設定。
type IntrospectionConfig struct {
	URL          string
	ClientID     string
	ClientSecret string        // 設定時はBasic認証で送信する
	Issuer       string        // 設定時はissが一致しなければ無効とする
	Timeout      time.Duration // 1リクエストあたりのタイムアウト
	CacheTTL     time.Duration // アクティブ判定結果のキャッシュ期間
}

// DeveloperProvisioner はメールアドレスで開発者を検索または作成する。
type DeveloperProvisioner interface {
	FindOrCreateByEmail(ctx context.Context, email, name string) (*model.Developer, bool, error)
}

// IntrospectionCache はアクティブと判定されたトークンの識別メールアドレスを保持する。
type IntrospectionCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, email string, ttl time.Duration) error
}

// IntrospectionResolver は外部IdPのイントロスペクションエンドポイントでトークンを検証する。
type IntrospectionResolver struct {
	config     IntrospectionConfig
	developers DeveloperProvisioner
	cache      IntrospectionCache
	client     *http.Client
	now        func() time.Time
}

// NewIntrospectionResolver はIntrospectionResolverを生成する。cacheはnilでもよい。
func NewIntrospectionResolver(config IntrospectionConfig, developers DeveloperProvisioner, cache IntrospectionCache) *IntrospectionResolver {
	if config.Timeout <= 0 {
		config.Timeout = defaultIntrospectionTimeout
	}
	return &IntrospectionResolver{
		config:     config,
		developers: developers,
		cache:      cache,
		client:     &http.Client{},
		now:        time.Now,
	}
}

// introspectionResponse はイントロスペクションエンドポイントのレスポンス。
type introspectionResponse struct {
	Active   bool   `json:"active"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Sub      string `json:"sub"`
	ClientID string `json:"client_id"`
	Iss      string `json:"iss"`
	Exp      int64  `json:"exp"`
}

// Resolve はトークンをイントロスペクションし、識別クレームに対応する開発者を返す。
// 開発者が存在しなければ DefaultDeveloperName で作成する。
func (r *IntrospectionResolver) Resolve(ctx context.Context, bearer string) (*model.Developer, error) {
	key := cacheKey(bearer)

	if r.cache != nil {
		email, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("introspection cache lookup failed", slog.String("error", err.Error()))
		} else if ok {
			return r.provision(ctx, email)
		}
	}

	resp, err := r.introspect(ctx, bearer)
	if err != nil {
		return nil, err
	}

	email, ttl, err := r.evaluate(resp)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && ttl > 0 {
		if err := r.cache.Set(ctx, key, email, ttl); err != nil {
			slog.Warn("introspection cache store failed", slog.String("error", err.Error()))
		}
	}

	return r.provision(ctx, email)
}

// introspect はエンドポイントへトークンをPOSTする。
func (r *IntrospectionResolver) introspect(ctx context.Context, bearer string) (*introspectionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	form := url.Values{
		"token":           {bearer},
		"token_type_hint": {"access_token"},
		"client_id":       {r.config.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if r.config.ClientSecret != "" {
		req.SetBasicAuth(r.config.ClientID, r.config.ClientSecret)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewUpstreamError("HTTPError",
			fmt.Sprintf("introspection endpoint returned status %d", resp.StatusCode))
	}

	var result introspectionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxIntrospectionBodySize)).Decode(&result); err != nil {
		return nil, model.NewUpstreamError("SyntaxError", "invalid introspection response")
	}
	return &result, nil
}

// evaluate はレスポンスを検査し、識別メールアドレスとキャッシュ期間を返す。
func (r *IntrospectionResolver) evaluate(resp *introspectionResponse) (string, time.Duration, error) {
	if !resp.Active {
		return "", 0, model.NewTokenNotValidError()
	}
	if r.config.Issuer != "" && resp.Iss != r.config.Issuer {
		return "", 0, model.NewTokenNotValidError()
	}
	if resp.ClientID != "" && resp.ClientID != r.config.ClientID {
		return "", 0, model.NewTokenNotValidError()
	}

	now := r.now()
	ttl := r.config.CacheTTL
	if resp.Exp > 0 {
		remaining := time.Unix(resp.Exp, 0).Sub(now)
		if remaining <= 0 {
			return "", 0, model.NewTokenNotValidError()
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	email := firstNonEmpty(resp.Username, resp.Email, resp.Sub)
	if email == "" {
		return "", 0, model.NewTokenNotValidError()
	}
	return email, ttl, nil
}

func (r *IntrospectionResolver) provision(ctx context.Context, email string) (*model.Developer, error) {
	dev, created, err := r.developers.FindOrCreateByEmail(ctx, email, DefaultDeveloperName)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create developer: %w", err)
	}
	if created {
		slog.Info("developer created from introspection",
			slog.Int64("developer_id", dev.ID),
			slog.String("email", email),
		)
	}
	return dev, nil
}

// cacheKey はトークンそのものを保存しないようにハッシュ化したキーを返す。
func cacheKey(bearer string) string {
	sum := sha256.Sum256([]byte(bearer))
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
