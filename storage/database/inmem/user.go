package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/classoptima/backend/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// withRoleName populates the joined role name the way the SQL repo does.
func (repo *userRepository) withRoleName(usr user.User) user.User {
	repo.db.role.RLock()
	defer repo.db.role.RUnlock()

	if r, ok := repo.db.role.rows[usr.RoleID]; ok {
		usr.RoleName = user.RoleName(r.Name)
	}
	return usr
}

func isExcluded(usr user.User, excluded []user.User, n int) bool {
	if n == 0 {
		return false
	}
	i := sort.Search(n, func(i int) bool { return excluded[i].ID >= usr.ID })
	return i < n && excluded[i].ID == usr.ID
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, studentCode, dpi string, excludedUsers ...user.User) error {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	exclLen := len(excludedUsers)
	if exclLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.db.user.query() {
		if isExcluded(usr, excludedUsers, exclLen) {
			continue
		}
		if usr.Email == email {
			return user.ErrUserExists
		}
		if studentCode != "" && usr.StudentCode == studentCode {
			return user.ErrUserExists
		}
		if dpi != "" && usr.DPI == dpi {
			return user.ErrUserExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	usr.ID = repo.db.user.nextPK()
	repo.db.user.rows[usr.ID] = &usr
	return repo.withRoleName(usr), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.user.query() {
		usr = repo.withRoleName(usr)
		if filter != nil {
			if filter.Role != "" && usr.RoleName != filter.Role {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
		}
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if usr, ok := repo.db.user.rows[id]; ok {
		return repo.withRoleName(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.db.user.query() {
		if strings.EqualFold(usr.Email, email) {
			return repo.withRoleName(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetActiveUserByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.db.user.query() {
		if !usr.IsActive {
			continue
		}
		if strings.EqualFold(usr.Email, identifier) ||
			(usr.StudentCode != "" && usr.StudentCode == identifier) ||
			(usr.DPI != "" && usr.DPI == identifier) {
			return repo.withRoleName(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if _, ok := repo.db.user.rows[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.user.rows[usr.ID] = &usr
	return repo.withRoleName(usr), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if _, ok := repo.db.user.rows[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.user.rows, id)
	return nil
}

func (repo *userRepository) SetUserPassword(ctx context.Context, id int, hash []byte) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	usr, ok := repo.db.user.rows[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.PasswordHash = hash
	usr.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *userRepository) SetUserResetToken(ctx context.Context, id int, token string, expiry time.Time) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	usr, ok := repo.db.user.rows[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.ResetToken = token
	usr.ResetTokenExpiry = expiry
	return nil
}

func (repo *userRepository) ClearUserResetToken(ctx context.Context, id int) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	usr, ok := repo.db.user.rows[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.ResetToken = ""
	usr.ResetTokenExpiry = time.Time{}
	return nil
}
