package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUserByBadgeCode(ctx context.Context, code string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
}

const userColumns = `id, uid, badge_code, username, display_name, role`

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, badge_code, username, display_name, role) VALUES ($1, COALESCE(NULLIF($2, ''), gen_random_uuid()::text), $3, $4, $5) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query, user.Uid, user.BadgeCode, user.Username, user.DisplayName, string(user.Role)).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return u.getOne(ctx, query, id)
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	return u.getOne(ctx, query, uid)
}

func (u *UserRepoImpl) GetUserByBadgeCode(ctx context.Context, code string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE badge_code = $1`
	return u.getOne(ctx, query, code)
}

func (u *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return u.getOne(ctx, query, username)
}

func (u *UserRepoImpl) getOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user %v not found", arg)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role string
	if err := row.Scan(&user.Id, &user.Uid, &user.BadgeCode, &user.Username, &user.DisplayName, &role); err != nil {
		return User{}, err
	}
	user.Role = Role(role)
	return user, nil
}

func (u *UserRepoImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return u.getMany(ctx, query)
}

// SearchUsers matches query against usernames and display names, ignoring
// case. A query with several words matches display names containing the
// words in that order.
func (u *UserRepoImpl) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	sql := `SELECT ` + userColumns + ` FROM users
		WHERE username ILIKE $1 OR display_name ILIKE $1 OR display_name ILIKE $2
		ORDER BY username
		LIMIT $3`
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = likeEscaper.Replace(w)
	}
	contains := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	inOrder := "%" + strings.Join(words, "%") + "%"
	return u.getMany(ctx, sql, contains, inOrder, limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (u *UserRepoImpl) getMany(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := u.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to get users: %v", err)
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, 10)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return users, nil
}
