package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IMSA-2025/portal-service/internal/auth"
	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
)

// stubUserRepo serves a fixed set of accounts to the middleware.
type stubUserRepo struct {
	users map[uint]*models.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (r *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (r *stubUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]models.User, int64, error) {
	return nil, 0, nil
}

func (r *stubUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (r *stubUserRepo) Delete(ctx context.Context, id uint) error           { return nil }
func (r *stubUserRepo) CountAdmins(ctx context.Context) (int64, error)      { return 1, nil }

type middlewareTestEnv struct {
	tokens *auth.TokenService
	repo   *stubUserRepo
	mw     *AuthMiddleware
}

func newMiddlewareTestEnv() *middlewareTestEnv {
	tokens := auth.NewTokenService(config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "portal-service-test",
	})
	repo := &stubUserRepo{users: map[uint]*models.User{}}
	return &middlewareTestEnv{
		tokens: tokens,
		repo:   repo,
		mw:     NewAuthMiddleware(tokens, repo),
	}
}

func (e *middlewareTestEnv) addUser(user models.User) *models.User {
	stored := user
	e.repo.users[user.ID] = &stored
	return &stored
}

func (e *middlewareTestEnv) accessToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.tokens.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	return token
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": CurrentUser(c).ID})
}

func performRequest(router *gin.Engine, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newMiddlewareTestEnv()
	user := env.addUser(models.User{ID: 1, Username: "alice", Role: models.RoleMember})

	router := gin.New()
	router.GET("/protected", env.mw.Authenticate(), okHandler)

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		w := performRequest(router, "/protected", env.accessToken(t, user))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		w := performRequest(router, "/protected", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		w := performRequest(router, "/protected", "not.a.token")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		var body ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Message != "Invalid token" {
			t.Errorf("message = %q, want Invalid token", body.Message)
		}
	})

	t.Run("reports expiry distinctly", func(t *testing.T) {
		expired := auth.NewTokenService(config.JWTConfig{
			AccessSecret: "access-secret",
			AccessTTL:    -time.Minute,
			Issuer:       "portal-service-test",
		})
		token, err := expired.IssueAccessToken(user)
		if err != nil {
			t.Fatalf("IssueAccessToken() error = %v", err)
		}

		w := performRequest(router, "/protected", token)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		var body ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Message != "Token expired" {
			t.Errorf("message = %q, want Token expired", body.Message)
		}
	})

	t.Run("rejects tokens of deleted accounts", func(t *testing.T) {
		ghost := &models.User{ID: 999, Username: "ghost"}
		w := performRequest(router, "/protected", env.accessToken(t, ghost))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		var body ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Message != "Account no longer exists" {
			t.Errorf("message = %q", body.Message)
		}
	})

	t.Run("ignores the token query parameter", func(t *testing.T) {
		w := performRequest(router, "/protected?token="+env.accessToken(t, user), "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401 without header", w.Code)
		}
	})
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newMiddlewareTestEnv()
	user := env.addUser(models.User{ID: 1, Username: "alice", Role: models.RoleMember})

	router := gin.New()
	router.GET("/download", env.mw.AuthenticateAllowQueryToken(), okHandler)

	t.Run("accepts the token query parameter", func(t *testing.T) {
		w := performRequest(router, "/download?token="+env.accessToken(t, user), "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
	})

	t.Run("header wins over query", func(t *testing.T) {
		w := performRequest(router, "/download?token=garbage", env.accessToken(t, user))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})
}

func TestAuthMiddleware_AuthenticateOptional(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newMiddlewareTestEnv()
	user := env.addUser(models.User{ID: 1, Username: "alice", Role: models.RoleMember})

	router := gin.New()
	router.GET("/browse", env.mw.AuthenticateOptional(), func(c *gin.Context) {
		if current := CurrentUser(c); current != nil {
			c.JSON(http.StatusOK, gin.H{"user_id": current.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"anonymous": true})
	})

	t.Run("lets anonymous requests through", func(t *testing.T) {
		w := performRequest(router, "/browse", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["anonymous"] != true {
			t.Errorf("body = %v, want anonymous", body)
		}
	})

	t.Run("resolves the account when a token is supplied", func(t *testing.T) {
		w := performRequest(router, "/browse", env.accessToken(t, user))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["user_id"] != float64(user.ID) {
			t.Errorf("body = %v, want user_id %d", body, user.ID)
		}
	})

	t.Run("still rejects a broken token", func(t *testing.T) {
		w := performRequest(router, "/browse", "not.a.token")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newMiddlewareTestEnv()
	admin := env.addUser(models.User{ID: 1, Username: "root", Role: models.RoleAdmin})
	member := env.addUser(models.User{ID: 2, Username: "alice", Role: models.RoleMember})

	router := gin.New()
	router.GET("/admin", env.mw.Authenticate(), env.mw.RequireAdmin(), okHandler)

	if w := performRequest(router, "/admin", env.accessToken(t, admin)); w.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", w.Code)
	}
	if w := performRequest(router, "/admin", env.accessToken(t, member)); w.Code != http.StatusForbidden {
		t.Errorf("member status = %d, want 403", w.Code)
	}
}

func TestAuthMiddleware_RequirePaid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newMiddlewareTestEnv()
	paid := env.addUser(models.User{ID: 1, Username: "alice", Role: models.RoleMember, FeePaid: true})
	unpaid := env.addUser(models.User{ID: 2, Username: "bob", Role: models.RoleUser})
	admin := env.addUser(models.User{ID: 3, Username: "root", Role: models.RoleAdmin})

	router := gin.New()
	router.GET("/gated", env.mw.Authenticate(), env.mw.RequirePaid(), okHandler)

	if w := performRequest(router, "/gated", env.accessToken(t, paid)); w.Code != http.StatusOK {
		t.Errorf("paid member status = %d, want 200", w.Code)
	}
	if w := performRequest(router, "/gated", env.accessToken(t, admin)); w.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", w.Code)
	}

	w := performRequest(router, "/gated", env.accessToken(t, unpaid))
	if w.Code != http.StatusForbidden {
		t.Fatalf("unpaid status = %d, want 403", w.Code)
	}
	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if !body.RequiresPayment {
		t.Error("requires_payment = false, want true")
	}
}
