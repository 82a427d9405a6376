package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gitrdun/backend/internal/database"
	"gitrdun/backend/internal/middleware"
	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"
	"gitrdun/backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testUserHeader = "X-Test-User"

type HandlersTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	users  *services.UserServiceImpl
	alice  *models.User
	bob    *models.User
}

func (s *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.db = db

	logger := zap.NewNop()
	listRepo := repositories.NewListRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	accessRepo := repositories.NewAccessRepository(db)
	userRepo := repositories.NewUserRepository(db)
	authz := services.NewAuthorizationService(listRepo, accessRepo, repositories.NewAuditRepository(db), logger)

	s.users = services.NewUserService(userRepo, 4)
	lists := NewListHandler(services.NewListService(listRepo, accessRepo, authz, nil, logger), logger)
	tasks := NewTaskHandler(services.NewTaskService(taskRepo, listRepo, accessRepo, authz), logger)
	access := NewAccessHandler(services.NewAccessService(accessRepo, listRepo, userRepo, authz), logger)
	users := NewUserHandler(s.users, logger)

	s.router = gin.New()
	api := s.router.Group("/")
	api.Use(func(c *gin.Context) {
		if id := c.GetHeader(testUserHeader); id != "" {
			c.Set(middleware.ContextUserID, id)
		}
		c.Next()
	})
	api.POST("/lists", lists.CreateList)
	api.GET("/lists", lists.GetLists)
	api.GET("/lists/:id", lists.GetList)
	api.PATCH("/lists/:id", lists.UpdateList)
	api.DELETE("/lists/:id", lists.DeleteList)
	api.POST("/tasks", tasks.CreateTask)
	api.GET("/tasks", tasks.GetTasks)
	api.GET("/tasks/:id", tasks.GetTaskByID)
	api.PATCH("/tasks/:id", tasks.UpdateTask)
	api.DELETE("/tasks/:id", tasks.DeleteTask)
	api.POST("/access", access.CreateGrant)
	api.GET("/access", access.GetGrants)
	api.PATCH("/access/:id", access.UpdateGrant)
	api.DELETE("/access/:id", access.DeleteGrant)
	api.POST("/users", users.CreateUser)
	api.GET("/users", users.GetUsers)
	api.GET("/users/:id", users.GetUser)
	api.PATCH("/users/:id", users.UpdateUser)
	api.DELETE("/users/:id", users.DeleteUser)

	s.alice = s.createUser("Alice", "alice@example.com")
	s.bob = s.createUser("Bob", "bob@example.com")
}

func (s *HandlersTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *HandlersTestSuite) createUser(name, email string) *models.User {
	user, err := s.users.CreateUser(context.Background(), services.CreateUserInput{Name: name, Email: email})
	s.Require().NoError(err)
	return user
}

func (s *HandlersTestSuite) do(method, path string, user *models.User, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set(testUserHeader, user.ID.String())
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) decode(w *httptest.ResponseRecorder, dest interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), dest))
}

func (s *HandlersTestSuite) createList(owner *models.User, name string) models.List {
	w := s.do(http.MethodPost, "/lists", owner, gin.H{"name": name})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var list models.List
	s.decode(w, &list)
	return list
}

func (s *HandlersTestSuite) grant(owner, grantee *models.User, list models.List, role string) models.AccessGrant {
	w := s.do(http.MethodPost, "/access", owner, gin.H{"userId": grantee.ID.String(), "listId": list.ID.String(), "role": role})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var grant models.AccessGrant
	s.decode(w, &grant)
	return grant
}

func (s *HandlersTestSuite) TestUnauthenticatedRequestsAreRejected() {
	w := s.do(http.MethodGet, "/lists", nil, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "Not authenticated")
}

func (s *HandlersTestSuite) TestCreateListValidation() {
	w := s.do(http.MethodPost, "/lists", s.alice, gin.H{"name": "   "})
	s.Equal(http.StatusBadRequest, w.Code)

	var body map[string]string
	s.decode(w, &body)
	s.Equal("validation_error", body["error"])
}

func (s *HandlersTestSuite) TestMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/lists", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(testUserHeader, s.alice.ID.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "invalid_request")
}

func (s *HandlersTestSuite) TestListLifecycle() {
	list := s.createList(s.alice, "Groceries")
	s.Equal(s.alice.ID, list.OwnerID)

	w := s.do(http.MethodGet, "/lists/"+list.ID.String(), s.alice, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, "/lists/"+list.ID.String(), s.alice, gin.H{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/lists/"+list.ID.String(), s.alice, gin.H{"name": "Weekly groceries"})
	s.Require().Equal(http.StatusOK, w.Code)
	var updated models.List
	s.decode(w, &updated)
	s.Equal("Weekly groceries", updated.Name)

	w = s.do(http.MethodDelete, "/lists/"+list.ID.String(), s.alice, nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.Empty(w.Body.String())

	w = s.do(http.MethodGet, "/lists/"+list.ID.String(), s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestListHiddenFromStrangers() {
	list := s.createList(s.alice, "Private")

	w := s.do(http.MethodGet, "/lists/"+list.ID.String(), s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/lists/not-a-uuid", s.bob, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestNonOwnerCannotUpdateOrDeleteList() {
	list := s.createList(s.alice, "Shared")
	s.grant(s.alice, s.bob, list, models.GrantRoleEditor)

	w := s.do(http.MethodPatch, "/lists/"+list.ID.String(), s.bob, gin.H{"name": "Mine now"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/lists/"+list.ID.String(), s.bob, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlersTestSuite) TestTaskDefaultsAndFilters() {
	list := s.createList(s.alice, "Work")

	w := s.do(http.MethodPost, "/tasks", s.alice, gin.H{"name": "Write report", "listId": list.ID.String()})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var task models.Task
	s.decode(w, &task)
	s.Equal(models.StatusInbox, task.Status)
	s.Equal(models.PriorityMedium, task.Priority)

	w = s.do(http.MethodGet, "/tasks?status=done", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var tasks []models.Task
	s.decode(w, &tasks)
	s.Empty(tasks)

	w = s.do(http.MethodGet, "/tasks?status=inbox&listId="+list.ID.String(), s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &tasks)
	s.Len(tasks, 1)

	w = s.do(http.MethodGet, "/tasks?status=bogus", s.alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/tasks?listId=nope", s.alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestTaskUpdateAndDelete() {
	list := s.createList(s.alice, "Work")
	w := s.do(http.MethodPost, "/tasks", s.alice, gin.H{"name": "Draft", "listId": list.ID.String()})
	s.Require().Equal(http.StatusCreated, w.Code)
	var task models.Task
	s.decode(w, &task)

	w = s.do(http.MethodPatch, "/tasks/"+task.ID.String(), s.alice, gin.H{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/tasks/"+task.ID.String(), s.alice, gin.H{"status": "someday"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/tasks/"+task.ID.String(), s.bob, gin.H{"status": "done"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPatch, "/tasks/"+task.ID.String(), s.alice, gin.H{"status": "done", "priority": "high"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &task)
	s.Equal("done", task.Status)
	s.Equal("high", task.Priority)

	w = s.do(http.MethodDelete, "/tasks/"+task.ID.String(), s.alice, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/tasks/"+task.ID.String(), s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestCreateTaskInHiddenList() {
	list := s.createList(s.alice, "Private")

	w := s.do(http.MethodPost, "/tasks", s.bob, gin.H{"name": "Sneaky", "listId": list.ID.String()})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestGrantRules() {
	list := s.createList(s.alice, "Trip")

	w := s.do(http.MethodPost, "/access", s.alice, gin.H{"userId": s.alice.ID.String(), "listId": list.ID.String(), "role": "read"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/access", s.bob, gin.H{"userId": s.alice.ID.String(), "listId": list.ID.String(), "role": "read"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/access", s.alice, gin.H{"userId": s.bob.ID.String(), "listId": list.ID.String(), "role": "owner"})
	s.Equal(http.StatusBadRequest, w.Code)

	grant := s.grant(s.alice, s.bob, list, models.GrantRoleViewer)
	s.Equal(s.bob.ID, grant.GranteeID)

	w = s.do(http.MethodPost, "/access", s.alice, gin.H{"userId": s.bob.ID.String(), "listId": list.ID.String(), "role": "editor"})
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/access", s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var grants []models.AccessGrant
	s.decode(w, &grants)
	s.Len(grants, 1)

	w = s.do(http.MethodPatch, "/access/"+grant.ID.String(), s.bob, gin.H{"role": "editor"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/access/"+grant.ID.String(), s.alice, gin.H{"role": "editor"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &grant)
	s.Equal(models.GrantRoleEditor, grant.Role)

	w = s.do(http.MethodDelete, "/access/"+grant.ID.String(), s.alice, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/access/"+grant.ID.String(), s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestSharedListScenario() {
	list := s.createList(s.alice, "Household")

	w := s.do(http.MethodPost, "/tasks", s.alice, gin.H{"name": "Buy milk", "listId": list.ID.String()})
	s.Require().Equal(http.StatusCreated, w.Code)
	var task models.Task
	s.decode(w, &task)

	w = s.do(http.MethodGet, "/tasks/"+task.ID.String(), s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)

	grant := s.grant(s.alice, s.bob, list, models.GrantRoleRead)

	w = s.do(http.MethodGet, "/lists", s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var lists []models.List
	s.decode(w, &lists)
	s.Require().Len(lists, 1)
	s.Equal(list.ID, lists[0].ID)

	w = s.do(http.MethodGet, "/tasks", s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var tasks []models.Task
	s.decode(w, &tasks)
	s.Require().Len(tasks, 1)

	// A read grant still allows task mutation.
	w = s.do(http.MethodPatch, "/tasks/"+task.ID.String(), s.bob, gin.H{"status": "done"})
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/access/"+grant.ID.String(), s.alice, nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/tasks/"+task.ID.String(), s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestUserAdministration() {
	w := s.do(http.MethodPost, "/users", s.alice, gin.H{"name": "Carol", "email": "carol@example.com", "role": "admin", "password": "secret1"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var carol models.User
	s.decode(w, &carol)
	s.NotContains(w.Body.String(), "secret1")

	w = s.do(http.MethodPost, "/users", s.alice, gin.H{"name": "Carol", "email": "carol@example.com"})
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/users", s.alice, gin.H{"name": "Dave", "email": "not-an-email"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/users", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var users []models.User
	s.decode(w, &users)
	s.Len(users, 3)

	w = s.do(http.MethodPatch, "/users/"+carol.ID.String(), s.alice, gin.H{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/users/"+carol.ID.String(), s.alice, gin.H{"name": "Caroline"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &carol)
	s.Equal("Caroline", carol.Name)

	w = s.do(http.MethodDelete, "/users/"+carol.ID.String(), s.alice, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/users/"+carol.ID.String(), s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

type fakeProvider struct {
	identity *services.ExternalIdentity
	err      error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*services.ExternalIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

type AuthHandlerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	redis    *miniredis.Miniredis
	router   *gin.Engine
	users    *services.UserServiceImpl
	sessions *services.SessionServiceImpl
	provider *fakeProvider
}

func (s *AuthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.db = db

	s.redis, err = miniredis.Run()
	s.Require().NoError(err)
	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})

	s.users = services.NewUserService(repositories.NewUserRepository(db), 4)
	s.sessions = services.NewSessionService(repositories.NewSessionRepository(client, time.Hour), "test-secret", time.Hour)
	s.provider = &fakeProvider{identity: &services.ExternalIdentity{
		Provider: services.ProviderGoogle,
		Subject:  "google-123",
		Email:    "alice@example.com",
		Name:     "Alice",
	}}

	cookie := CookieConfig{Name: "sid", TTL: time.Hour}
	handler := NewAuthHandler(s.provider, s.users, s.sessions, cookie, "/app", zap.NewNop())

	s.router = gin.New()
	s.router.GET("/auth/google", handler.GoogleLogin)
	s.router.GET("/auth/google/callback", handler.GoogleCallback)
	s.router.POST("/auth/login", handler.Login)
	s.router.GET("/logout", handler.Logout)
	s.router.GET("/auth/me", middleware.RequireAuth(s.sessions, "sid", nil), handler.Me)
}

func (s *AuthHandlerTestSuite) TearDownTest() {
	s.redis.Close()
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func (s *AuthHandlerTestSuite) callback(state string, stateCookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+state, nil)
	if stateCookie != "" {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: stateCookie})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AuthHandlerTestSuite) TestGoogleLoginRedirectsWithState() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	s.Equal(http.StatusFound, w.Code)
	state := cookieNamed(w, stateCookieName)
	s.Require().NotNil(state)
	s.Contains(w.Header().Get("Location"), "state="+state.Value)
}

func (s *AuthHandlerTestSuite) TestCallbackRejectsStateMismatch() {
	w := s.callback("one", "two")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.callback("one", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AuthHandlerTestSuite) TestCallbackCreatesUserAndSession() {
	w := s.callback("xyz", "xyz")
	s.Require().Equal(http.StatusFound, w.Code, w.Body.String())
	s.Equal("/app", w.Header().Get("Location"))

	session := cookieNamed(w, "sid")
	s.Require().NotNil(session)
	s.NotEmpty(session.Value)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: session.Value})
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	s.Require().Equal(http.StatusOK, me.Code)

	var user models.User
	s.Require().NoError(json.Unmarshal(me.Body.Bytes(), &user))
	s.Equal("alice@example.com", user.Email)
	s.Equal(models.RoleUser, user.Role)

	// A second login reuses the same account.
	w = s.callback("abc", "abc")
	s.Require().Equal(http.StatusFound, w.Code)
	all, err := s.users.ListUsers(context.Background())
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *AuthHandlerTestSuite) TestCallbackExchangeFailure() {
	s.provider.err = services.NewUnauthenticated("invalid authorization code")
	w := s.callback("xyz", "xyz")
	s.Equal(http.StatusUnauthorized, w.Code)

	s.provider.err = errors.New("network down")
	w = s.callback("xyz", "xyz")
	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *AuthHandlerTestSuite) TestPasswordLoginAndLogout() {
	_, err := s.users.CreateUser(context.Background(), services.CreateUserInput{
		Name: "Bob", Email: "bob@example.com", Password: "hunter22",
	})
	s.Require().NoError(err)

	bad := httptest.NewRecorder()
	s.router.ServeHTTP(bad, jsonRequest(http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"wrong"}`))
	s.Equal(http.StatusUnauthorized, bad.Code)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, jsonRequest(http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"hunter22"}`))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.NotEmpty(body.Token)
	s.Equal("bob@example.com", body.User.Email)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	out := httptest.NewRecorder()
	s.router.ServeHTTP(out, req)
	s.Equal(http.StatusOK, out.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	s.Equal(http.StatusUnauthorized, me.Code)
}

func (s *AuthHandlerTestSuite) TestLogoutWithoutSession() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))
	s.Equal(http.StatusOK, w.Code)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
