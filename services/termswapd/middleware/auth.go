package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"

	"termswap/observability/logging"
)

// AccountHeader names the acting account when authentication is disabled.
const AccountHeader = "X-Termswap-Account"

type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
	Now        func() time.Time
}

type contextKey string

const contextKeyAccount contextKey = "termswap.account"

// Authenticator resolves the account a request acts for. With auth enabled it
// is the subject of an HS256 bearer token; otherwise AccountHeader is trusted.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
	}
}

// WithAccount stores the acting account on ctx.
func WithAccount(ctx context.Context, account common.Address) context.Context {
	return context.WithValue(ctx, contextKeyAccount, account)
}

// AccountFrom returns the acting account stored by the authenticator.
func AccountFrom(ctx context.Context) (common.Address, bool) {
	if ctx == nil {
		return common.Address{}, false
	}
	account, ok := ctx.Value(contextKeyAccount).(common.Address)
	return account, ok && account != (common.Address{})
}

// Middleware rejects requests without an acting account.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			account common.Address
			err     error
		)
		if a.cfg.Enabled {
			account, err = a.fromToken(r.Header.Get("Authorization"))
		} else {
			account, err = parseAccount(r.Header.Get(AccountHeader))
		}
		if err != nil {
			a.logger.Warn("auth: request rejected",
				slog.String("reason", err.Error()),
				logging.MaskField("authorization", r.Header.Get("Authorization")),
				slog.String("request_id", RequestIDFrom(r.Context())))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
	})
}

func parseAccount(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, errors.New("account missing")
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, errors.New("account is not a hex address")
	}
	account := common.HexToAddress(trimmed)
	if account == (common.Address{}) {
		return common.Address{}, errors.New("account is the zero address")
	}
	return account, nil
}

func (a *Authenticator) fromToken(header string) (common.Address, error) {
	tokenString := extractBearer(header)
	if tokenString == "" {
		return common.Address{}, errors.New("missing bearer token")
	}
	if len(a.secret) == 0 {
		return common.Address{}, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithTimeFunc(a.cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return common.Address{}, err
	}
	if !token.Valid {
		return common.Address{}, errors.New("token invalid")
	}
	return parseAccount(claims.Subject)
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
