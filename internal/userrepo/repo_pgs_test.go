//go:build integration

package userrepo_test

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/integrationtest/helpers"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"

	_ "github.com/lib/pq"
)

var (
	dbDriver string
	dbSource string
	ctx      context.Context
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	logger := middleware.CreateLogger(config)
	ctx = logger.WithContext(context.Background())

	os.Exit(m.Run())
}

func TestCreateUniqueEmail(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := userrepo.NewRepoPGS(tx, 0)

	user := helpers.SeedUser(t, tx)

	arg := domain.CreateUserParams{
		Name:  randompkg.Name(),
		Email: user.Email,
	}

	if _, err := repo.Create(ctx, arg); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Errorf("repo.Create(%+v) returned error %v, want %v", arg, err, domain.ErrEmailAlreadyExists)
	}
}

func TestExists(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	repo := userrepo.NewRepoPGS(tx, 0)

	user := helpers.SeedUser(t, tx)

	testCases := []struct {
		name       string
		id         string
		wantExists bool
	}{
		{
			name:       "OK",
			id:         user.ID,
			wantExists: true,
		},
		{
			name: "NotFound",
			id:   randompkg.UserID(),
		},
		{
			name: "MalformedID",
			id:   "not-a-uuid",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			exists, err := repo.Exists(ctx, tc.id)
			if err != nil {
				t.Fatalf("repo.Exists(%v) returned error: %v", tc.id, err)
			}

			if exists != tc.wantExists {
				t.Errorf("repo.Exists(%v) = %v, want %v", tc.id, exists, tc.wantExists)
			}
		})
	}
}
