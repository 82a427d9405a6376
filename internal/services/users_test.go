package services

import (
	"context"
	"testing"
	"time"

	"gitrdun/backend/internal/cache"
	"gitrdun/backend/internal/database"
	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/repositories"
	"gitrdun/backend/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type UserServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	mr       *miniredis.Miniredis
	client   *redis.Client
	ctx      context.Context
	users    *UserServiceImpl
	cached   *CachedUserService
	sessions *SessionServiceImpl
}

func (s *UserServiceTestSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.db = db

	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.ctx = context.Background()

	s.users = NewUserService(repositories.NewUserRepository(db), 4)
	multi := cache.NewMultiLevelCache(cache.NewRedisCache(s.client, "cache:"), cache.MultiLevelConfig{}, nil)
	s.cached = NewCachedUserService(s.users, multi, time.Minute, nil)
	s.sessions = NewSessionService(repositories.NewSessionRepository(s.client, time.Hour), "test-secret", time.Hour)
}

func (s *UserServiceTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
	sqlDB, _ := s.db.DB()
	sqlDB.Close()
}

func (s *UserServiceTestSuite) TestCreateUser() {
	user, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: " Ada@Example.com ", Password: "secret1"})
	s.Require().NoError(err)

	s.Equal("ada@example.com", user.Email)
	s.Equal(models.RoleUser, user.Role)
	s.NotEqual("secret1", user.Password)

	_, err = s.users.CreateUser(s.ctx, CreateUserInput{Name: "Other Ada", Email: "ada@example.com"})
	s.Equal(ErrCodeConflict, CodeOf(err))
}

func (s *UserServiceTestSuite) TestCreateUser_Validation() {
	cases := []CreateUserInput{
		{Email: "a@example.com"},
		{Name: "A"},
		{Name: "A", Email: "not-an-email"},
		{Name: "A", Email: "a@example.com", Role: "root"},
		{Name: "A", Email: "a@example.com", Password: "123"},
	}
	for _, input := range cases {
		_, err := s.users.CreateUser(s.ctx, input)
		s.Equal(ErrCodeValidation, CodeOf(err), "input %+v", input)
	}
}

func (s *UserServiceTestSuite) TestUpdateAndDeleteUser() {
	user, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)

	_, err = s.users.UpdateUser(s.ctx, user.ID.String(), models.UserPatch{})
	s.Equal(ErrCodeValidation, CodeOf(err))

	role := models.RoleAdmin
	updated, err := s.users.UpdateUser(s.ctx, user.ID.String(), models.UserPatch{Role: &role})
	s.Require().NoError(err)
	s.True(updated.IsAdmin())

	s.Require().NoError(s.users.DeleteUser(s.ctx, user.ID.String()))
	s.Equal(ErrCodeNotFound, CodeOf(s.users.DeleteUser(s.ctx, user.ID.String())))
}

func (s *UserServiceTestSuite) TestUpsertExternalUser() {
	identity := ExternalIdentity{Provider: ProviderGoogle, Subject: "g-123", Email: "grace@example.com", Name: "Grace"}

	first, err := s.users.UpsertExternalUser(s.ctx, identity)
	s.Require().NoError(err)
	s.Equal(models.RoleUser, first.Role)
	s.Require().NotNil(first.LastLoginAt)

	identity.Name = "Grace Hopper"
	second, err := s.users.UpsertExternalUser(s.ctx, identity)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal("Grace Hopper", second.Name)
}

func (s *UserServiceTestSuite) TestUpsertExternalUser_LinksExistingEmail() {
	existing, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Linus", Email: "linus@example.com", Role: models.RoleAdmin})
	s.Require().NoError(err)

	linked, err := s.users.UpsertExternalUser(s.ctx, ExternalIdentity{Subject: "g-9", Email: "Linus@example.com"})
	s.Require().NoError(err)
	s.Equal(existing.ID, linked.ID)
	s.Equal(models.RoleAdmin, linked.Role)
}

func (s *UserServiceTestSuite) TestAuthenticate() {
	_, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	s.Require().NoError(err)

	user, err := s.users.Authenticate(s.ctx, "ada@example.com", "secret1")
	s.Require().NoError(err)
	s.Equal("Ada", user.Name)

	_, err = s.users.Authenticate(s.ctx, "ada@example.com", "wrong")
	s.Equal(ErrCodeUnauthenticated, CodeOf(err))

	_, err = s.users.Authenticate(s.ctx, "nobody@example.com", "secret1")
	s.Equal(ErrCodeUnauthenticated, CodeOf(err))
}

func (s *UserServiceTestSuite) TestCachedUserService_InvalidatesOnUpdate() {
	user, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)

	got, err := s.cached.GetUser(s.ctx, user.ID.String())
	s.Require().NoError(err)
	s.Equal("Ada", got.Name)
	s.True(s.mr.Exists("cache:user:" + user.ID.String()))

	name := "Ada Lovelace"
	_, err = s.cached.UpdateUser(s.ctx, user.ID.String(), models.UserPatch{Name: &name})
	s.Require().NoError(err)
	s.False(s.mr.Exists("cache:user:" + user.ID.String()))

	got, err = s.cached.GetUser(s.ctx, user.ID.String())
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", got.Name)
}

func (s *UserServiceTestSuite) TestSessions_Lifecycle() {
	user, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)

	token, session, err := s.sessions.CreateSession(s.ctx, user, ProviderGoogle)
	s.Require().NoError(err)
	s.NotEmpty(token)

	resolved, err := s.sessions.ResolveSession(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(session.ID, resolved.ID)
	s.Equal(user.ID, resolved.UserID)

	s.Require().NoError(s.sessions.RevokeSession(s.ctx, token))
	_, err = s.sessions.ResolveSession(s.ctx, token)
	s.Equal(ErrCodeUnauthenticated, CodeOf(err))
}

func (s *UserServiceTestSuite) TestSessions_RejectsForeignTokens() {
	user, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)

	other := NewSessionService(repositories.NewSessionRepository(s.client, time.Hour), "other-secret", time.Hour)
	token, _, err := other.CreateSession(s.ctx, user, ProviderPassword)
	s.Require().NoError(err)

	for _, candidate := range []string{"", "garbage", token} {
		_, err := s.sessions.ResolveSession(s.ctx, candidate)
		s.Equal(ErrCodeUnauthenticated, CodeOf(err))
	}
}

func (s *UserServiceTestSuite) TestSessions_ExpireWithRedisTTL() {
	user, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)

	token, _, err := s.sessions.CreateSession(s.ctx, user, ProviderGoogle)
	s.Require().NoError(err)

	s.mr.FastForward(2 * time.Hour)
	_, err = s.sessions.ResolveSession(s.ctx, token)
	s.Equal(ErrCodeUnauthenticated, CodeOf(err))
}

func (s *UserServiceTestSuite) TestOrphanAuditor() {
	listRepo := repositories.NewListRepository(s.db)
	taskRepo := repositories.NewTaskRepository(s.db)
	accessRepo := repositories.NewAccessRepository(s.db)
	auditor := NewOrphanAuditor(taskRepo, accessRepo, nil)

	owner, err := s.users.CreateUser(s.ctx, CreateUserInput{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)
	list := &models.List{OwnerID: owner.ID, Name: "Gone"}
	s.Require().NoError(listRepo.Create(s.ctx, list))
	s.Require().NoError(taskRepo.Create(s.ctx, &models.Task{OwnerID: owner.ID, ListID: list.ID, Name: "Left behind"}))
	s.Require().NoError(listRepo.DeleteOwned(s.ctx, list.ID, owner.ID))

	report, err := auditor.Audit(s.ctx, list.ID.String())
	s.Require().NoError(err)
	s.Equal(int64(1), report.Tasks)
	s.Zero(report.Grants)

	job := &worker.Job{ID: "1", Payload: map[string]interface{}{"list_id": "bogus"}}
	s.NoError(auditor.HandleJob(s.ctx, job))
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
