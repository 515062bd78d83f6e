package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/travel-auth/internal/domain"
)

// AccountRepository defines persistence access for the three principal kinds.
// Only the lookups the token/session layer needs are exposed.
type AccountRepository interface {
	GetConsumerByEmail(ctx context.Context, email string) (*domain.ConsumerAccount, error)
	GetConsumerByID(ctx context.Context, id string) (*domain.ConsumerAccount, error)
	GetBusinessByEmail(ctx context.Context, email string) (*domain.BusinessAccount, error)
	GetBusinessByID(ctx context.Context, id string) (*domain.BusinessAccount, error)
	GetAdminByEmail(ctx context.Context, email string) (*domain.AdminAccount, error)
	GetAdminByID(ctx context.Context, id string) (*domain.AdminAccount, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) GetConsumerByEmail(ctx context.Context, email string) (*domain.ConsumerAccount, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM consumers WHERE email=$1`
	return r.scanConsumer(ctx, query, email)
}

func (r *accountRepository) GetConsumerByID(ctx context.Context, id string) (*domain.ConsumerAccount, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM consumers WHERE id=$1`
	return r.scanConsumer(ctx, query, id)
}

func (r *accountRepository) scanConsumer(ctx context.Context, query string, arg any) (*domain.ConsumerAccount, error) {
	var account domain.ConsumerAccount
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetBusinessByEmail(ctx context.Context, email string) (*domain.BusinessAccount, error) {
	const query = `
        SELECT id, company_name, email, password_hash, created_at, updated_at
        FROM businesses WHERE email=$1`
	return r.scanBusiness(ctx, query, email)
}

func (r *accountRepository) GetBusinessByID(ctx context.Context, id string) (*domain.BusinessAccount, error) {
	const query = `
        SELECT id, company_name, email, password_hash, created_at, updated_at
        FROM businesses WHERE id=$1`
	return r.scanBusiness(ctx, query, id)
}

func (r *accountRepository) scanBusiness(ctx context.Context, query string, arg any) (*domain.BusinessAccount, error) {
	var account domain.BusinessAccount
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.CompanyName,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminAccount, error) {
	const query = `
        SELECT id, email, password_hash, role, created_at, updated_at
        FROM admins WHERE email=$1`
	return r.scanAdmin(ctx, query, email)
}

func (r *accountRepository) GetAdminByID(ctx context.Context, id string) (*domain.AdminAccount, error) {
	const query = `
        SELECT id, email, password_hash, role, created_at, updated_at
        FROM admins WHERE id=$1`
	return r.scanAdmin(ctx, query, id)
}

func (r *accountRepository) scanAdmin(ctx context.Context, query string, arg any) (*domain.AdminAccount, error) {
	var account domain.AdminAccount
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
