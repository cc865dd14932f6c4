package services_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
	"gamerstore-backend/test/helpers"
)

type UserServiceTestSuite struct {
	suite.Suite
	testDB *helpers.TestDatabase
	users  *services.UserService
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.testDB = helpers.SetupTestDatabase()
	suite.users = services.NewUserService(suite.testDB.DB)
}

func (suite *UserServiceTestSuite) TearDownTest() {
	suite.testDB.Close()
}

func (suite *UserServiceTestSuite) TestCreateUser() {
	user, err := suite.users.CreateUser(&models.UserRegistration{
		Username: "player_one",
		Email:    "Player@Example.com",
		Password: "SuperSecret1",
	})
	suite.NoError(err)
	suite.NotEmpty(user.ID)
	suite.Equal("player_one", user.Username)
	suite.Equal("player@example.com", user.Email)
	suite.Equal(models.UserRoleCustomer, user.Role)
	suite.NotEqual("SuperSecret1", user.PasswordHash)
}

func (suite *UserServiceTestSuite) TestCreateUserDuplicate() {
	registration := &models.UserRegistration{
		Username: "player_one",
		Email:    "player@example.com",
		Password: "SuperSecret1",
	}
	_, err := suite.users.CreateUser(registration)
	suite.NoError(err)

	_, err = suite.users.CreateUser(&models.UserRegistration{
		Username: "player_one",
		Email:    "other@example.com",
		Password: "SuperSecret1",
	})
	suite.ErrorIs(err, services.ErrUserExists)

	_, err = suite.users.CreateUser(&models.UserRegistration{
		Username: "player_two",
		Email:    "player@example.com",
		Password: "SuperSecret1",
	})
	suite.ErrorIs(err, services.ErrUserExists)
}

func (suite *UserServiceTestSuite) TestCreateUserRejectsShortPassword() {
	_, err := suite.users.CreateUser(&models.UserRegistration{
		Username: "player_one",
		Email:    "player@example.com",
		Password: "short",
	})
	suite.Error(err)
}

func (suite *UserServiceTestSuite) TestAuthenticateUser() {
	_, err := suite.users.CreateUser(&models.UserRegistration{
		Username: "player_one",
		Email:    "player@example.com",
		Password: "SuperSecret1",
	})
	suite.NoError(err)

	user, err := suite.users.AuthenticateUser(&models.UserLogin{
		Email:    "player@example.com",
		Password: "SuperSecret1",
	})
	suite.NoError(err)
	suite.Equal("player_one", user.Username)

	// Email lookup is case-insensitive
	user, err = suite.users.AuthenticateUser(&models.UserLogin{
		Email:    "PLAYER@example.com",
		Password: "SuperSecret1",
	})
	suite.NoError(err)
	suite.Equal("player_one", user.Username)
}

func (suite *UserServiceTestSuite) TestAuthenticateUserWrongPassword() {
	_, err := suite.users.CreateUser(&models.UserRegistration{
		Username: "player_one",
		Email:    "player@example.com",
		Password: "SuperSecret1",
	})
	suite.NoError(err)

	_, err = suite.users.AuthenticateUser(&models.UserLogin{
		Email:    "player@example.com",
		Password: "WrongPassword1",
	})
	suite.ErrorIs(err, services.ErrInvalidCredentials)

	_, err = suite.users.AuthenticateUser(&models.UserLogin{
		Email:    "nobody@example.com",
		Password: "SuperSecret1",
	})
	suite.ErrorIs(err, services.ErrInvalidCredentials)
}

func (suite *UserServiceTestSuite) TestPromoteToAdmin() {
	user, err := suite.users.CreateUser(&models.UserRegistration{
		Username: "player_one",
		Email:    "player@example.com",
		Password: "SuperSecret1",
	})
	suite.NoError(err)

	suite.NoError(suite.users.PromoteToAdmin(user.ID))

	promoted, err := suite.users.GetUserByID(user.ID)
	suite.NoError(err)
	suite.True(promoted.IsAdmin())
}

func (suite *UserServiceTestSuite) TestEnsureAdminCreatesAccount() {
	suite.NoError(suite.users.EnsureAdmin("storeadmin", "admin@example.com", "AdminSecret1"))

	admin, err := suite.users.GetUserByEmail("admin@example.com")
	suite.NoError(err)
	suite.True(admin.IsAdmin())

	// Running the seed again must not duplicate or fail
	suite.NoError(suite.users.EnsureAdmin("storeadmin", "admin@example.com", "AdminSecret1"))
}

func (suite *UserServiceTestSuite) TestEnsureAdminPromotesExistingUser() {
	user, err := suite.users.CreateUser(&models.UserRegistration{
		Username: "storeadmin",
		Email:    "admin@example.com",
		Password: "AdminSecret1",
	})
	suite.NoError(err)
	suite.Equal(models.UserRoleCustomer, user.Role)

	suite.NoError(suite.users.EnsureAdmin("storeadmin", "admin@example.com", "AdminSecret1"))

	promoted, err := suite.users.GetUserByID(user.ID)
	suite.NoError(err)
	suite.True(promoted.IsAdmin())
}

func (suite *UserServiceTestSuite) TestEnsureAdminSkipsWhenUnconfigured() {
	suite.NoError(suite.users.EnsureAdmin("", "", ""))

	var count int
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	suite.Equal(0, count)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
