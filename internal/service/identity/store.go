package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/voicebridge/voicebridge/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// User is an account recordings are attributed to.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store provides account lookup and creation.
type Store interface {
	// Authenticate verifies the email/password pair.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// Register creates a new account. The email must be unused.
	Register(ctx context.Context, username, email, password string) (*User, error)
}

type gormStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// Open connects to the user database.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open user database: %w", err)
	}
	return db, nil
}

// NewStore migrates the schema and returns a database-backed Store.
func NewStore(db *gorm.DB, log logger.Logger) (Store, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &gormStore{db: db, logger: log}, nil
}

func (s *gormStore) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", email, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	s.logger.Debugf("[identity] authenticated user=%s", user.Username)
	return &user, nil
}

func (s *gormStore) Register(ctx context.Context, username, email, password string) (*User, error) {
	var existing User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", email, err)
	}

	s.logger.Infof("[identity] registered user=%s", user.Username)
	return &user, nil
}
