package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/TechmongersNL/coders-network-api/internal/repository"
	"github.com/TechmongersNL/coders-network-api/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// --- モック定義 ---

type mockDeveloperStore struct {
	findByEmailFn func(ctx context.Context, email string) (*model.Developer, error)
	createFn      func(ctx context.Context, dev *model.Developer) error
}

func (m *mockDeveloperStore) FindByEmail(ctx context.Context, email string) (*model.Developer, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockDeveloperStore) Create(ctx context.Context, dev *model.Developer) error {
	if m.createFn != nil {
		return m.createFn(ctx, dev)
	}
	dev.ID = 1
	return nil
}

func newTestService(store DeveloperStore) (*Service, *token.Codec) {
	codec := token.NewCodec("secret", time.Hour)
	return NewService(store, NewPasswordHasher(bcrypt.MinCost), codec), codec
}

// --- テスト ---

func TestService_Signup(t *testing.T) {
	var created *model.Developer
	store := &mockDeveloperStore{
		createFn: func(_ context.Context, dev *model.Developer) error {
			dev.ID = 3
			created = dev
			return nil
		},
	}
	svc, codec := newTestService(store)

	result, err := svc.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "abcd", Name: "A"})
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}

	if created.PasswordHash == "" || created.PasswordHash == "abcd" {
		t.Errorf("password hash = %q, want bcrypt hash", created.PasswordHash)
	}
	if result.Developer.ID != 3 {
		t.Errorf("developer ID = %d, want 3", result.Developer.ID)
	}

	id, err := codec.Verify(result.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id != 3 {
		t.Errorf("token id = %d, want 3", id)
	}
}

func TestService_Signup_EmailTaken(t *testing.T) {
	store := &mockDeveloperStore{
		createFn: func(context.Context, *model.Developer) error {
			return repository.ErrDuplicate
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "abcd", Name: "A"})
	assertAPIError(t, err, model.ErrCodeEmailTaken)
}

func TestService_Signup_PasswordTooLong(t *testing.T) {
	store := &mockDeveloperStore{
		createFn: func(context.Context, *model.Developer) error {
			t.Error("Create should not be called")
			return nil
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email: "a@x.com", Password: strings.Repeat("é", 72), Name: "A",
	})
	apiErr := assertAPIError(t, err, model.ErrCodeValidation)
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "password" {
		t.Errorf("fields = %+v, want password", apiErr.Fields)
	}
}

func TestService_Signup_StoreError(t *testing.T) {
	dbErr := errors.New("db down")
	store := &mockDeveloperStore{
		createFn: func(context.Context, *model.Developer) error { return dbErr },
	}
	svc, _ := newTestService(store)

	_, err := svc.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "abcd", Name: "A"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("error = %v, want wrapped dbErr", err)
	}
}

func TestService_Login(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	hash, _ := hasher.Hash("abcd")

	store := &mockDeveloperStore{
		findByEmailFn: func(_ context.Context, email string) (*model.Developer, error) {
			if email == "kelley@codaisseur.com" {
				return &model.Developer{ID: 1, Email: email, PasswordHash: hash}, nil
			}
			return nil, nil
		},
	}
	svc, codec := newTestService(store)

	t.Run("成功", func(t *testing.T) {
		tok, err := svc.Login(context.Background(), "kelley@codaisseur.com", "abcd")
		if err != nil {
			t.Fatalf("Login error: %v", err)
		}
		if id, err := codec.Verify(tok); err != nil || id != 1 {
			t.Errorf("Verify = %d, %v; want 1, nil", id, err)
		}
	})

	t.Run("未登録のメールアドレス", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "nobody@x.com", "abcd")
		assertAPIError(t, err, model.ErrCodeUnknownEmail)
	})

	t.Run("パスワード不一致", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "kelley@codaisseur.com", "wrong")
		assertAPIError(t, err, model.ErrCodeWrongPassword)
	})
}

func TestService_Login_IntrospectedDeveloperHasNoPassword(t *testing.T) {
	store := &mockDeveloperStore{
		findByEmailFn: func(_ context.Context, email string) (*model.Developer, error) {
			return &model.Developer{ID: 9, Email: email, Name: DefaultDeveloperName}, nil
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.Login(context.Background(), "new@x.com", "")
	assertAPIError(t, err, model.ErrCodeWrongPassword)
}
