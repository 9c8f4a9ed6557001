package repositories

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	database "github.com/yigit/scholarsphere/internal/db"
)

// baseRepository carries the pool and a dollar-placeholder builder.
// Every query goes through conn so it joins a transaction stored in ctx.
type baseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func newBaseRepository(db *pgxpool.Pool) baseRepository {
	return baseRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *baseRepository) conn(ctx context.Context) database.Querier {
	return database.Conn(ctx, r.db)
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	TokenRepository        *TokenRepository
	ScholarshipRepository  *ScholarshipRepository
	ApplicationRepository  *ApplicationRepository
	DocumentRepository     *DocumentRepository
	NotificationRepository *NotificationRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(db),
		TokenRepository:        NewTokenRepository(db),
		ScholarshipRepository:  NewScholarshipRepository(db),
		ApplicationRepository:  NewApplicationRepository(db),
		DocumentRepository:     NewDocumentRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches search as a literal substring
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

// ilikeAny matches search case-insensitively against any of columns
func ilikeAny(search string, columns ...string) squirrel.Or {
	p := likePattern(search)
	or := make(squirrel.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, squirrel.Expr(col+` ILIKE ? ESCAPE '\'`, p))
	}
	return or
}
