package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
)

const (
	contextTokenKey   = "teacherToken"
	contextTeacherKey = "teacher"
)

var errRefreshExpired = core.NewValidationError(errors.New("refresh has expired"))

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
}

// GetTeacherClaims builds the claims for a session of t. origIat keeps the original issue time across refreshes.
func GetTeacherClaims(conf *core.Config, t teacher.Teacher, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(t.ID),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     t.Username,
		Name:         t.Name,
		Email:        t.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the teacher Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// revocations holds the ids of logged out tokens until they expire on their own.
// It lives in the process: a token revoked on one API instance stays valid on the others.
type revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time // jti -> expiry
}

func newRevocations() *revocations {
	return &revocations{ids: make(map[string]time.Time)}
}

func (r *revocations) revoke(id string, until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for k, exp := range r.ids {
		if now.After(exp) {
			delete(r.ids, k)
		}
	}
	r.ids[id] = until
}

func (r *revocations) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

type authenticator struct {
	conf      *core.Config
	teachers  *teacher.Service
	jwtConfig middleware.JWTConfig
	revoked   *revocations
}

func newAuthenticator(conf *core.Config, teachers *teacher.Service) *authenticator {
	a := &authenticator{conf: conf, teachers: teachers, revoked: newRevocations()}
	a.jwtConfig = middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
		BeforeFunc:    a.cookieToHeader,
		// every token failure looks the same to the client
		ErrorHandlerWithContext: func(error, echo.Context) error {
			return core.ErrUnauthorized
		},
	}
	return a
}

// cookieToHeader lets browser sessions authenticate through the session cookie
// when no Authorization header was sent.
func (a *authenticator) cookieToHeader(ctx echo.Context) {
	req := ctx.Request()
	if req.Header.Get(echo.HeaderAuthorization) != "" {
		return
	}
	if cookie, err := req.Cookie(a.conf.Server.SessionCookie); err == nil && cookie.Value != "" {
		req.Header.Set(echo.HeaderAuthorization, middleware.DefaultJWTConfig.AuthScheme+" "+cookie.Value)
	}
}

// required checks the token then attaches the teacher's identity to the request context.
func (a *authenticator) required() echo.MiddlewareFunc {
	checkToken := middleware.JWTWithConfig(a.jwtConfig)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return checkToken(a.identify(next))
	}
}

func (a *authenticator) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Id == "" || a.revoked.has(claims.Id) {
			return core.ErrUnauthorized
		}
		id, err := strconv.Atoi(claims.Subject)
		if err != nil {
			return core.ErrUnauthorized
		}
		t, err := a.teachers.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if err == teacher.ErrNotFound {
				return core.ErrUnauthorized
			}
			return errors.Wrap(err, "finding teacher by ID")
		}

		ctx.Set(contextTeacherKey, t)
		req := ctx.Request()
		ctx.SetRequest(req.WithContext(core.ContextWithIdentity(req.Context(), t.Identity())))
		return next(ctx)
	}
}

func (a *authenticator) setSessionCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     a.conf.Server.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.conf.Server.JWTExpirationDelta),
		HttpOnly: true,
		Secure:   !(a.conf.Debug || a.conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authenticator) clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     a.conf.Server.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// revokeSession revokes the token presented in the Authorization header or the session cookie, if any.
// Invalid or missing tokens are ignored: logging out always succeeds.
func (a *authenticator) revokeSession(ctx echo.Context) {
	a.cookieToHeader(ctx)
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	scheme := middleware.DefaultJWTConfig.AuthScheme + " "
	if !strings.HasPrefix(auth, scheme) {
		return
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(auth[len(scheme):], claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return []byte(a.conf.SecretKey), nil
	})
	if err != nil || !token.Valid || claims.Id == "" {
		return
	}
	a.revoked.revoke(claims.Id, time.Unix(claims.ExpiresAt, 0))
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	t, err := getContextTeacher(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, GetTeacherClaims(a.conf, t, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, core.ErrUnauthorized
}

func getContextTeacher(ctx echo.Context) (teacher.Teacher, error) {
	if t, ok := ctx.Get(contextTeacherKey).(teacher.Teacher); ok {
		return t, nil
	}
	return teacher.Teacher{}, core.ErrUnauthorized
}
