package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/user"
)

// addUser creates an active Admin account, or promotes an existing account
// and resets its password.
func (cli *commandLine) addUser(email, firstName, lastName, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	adminID, err := cli.adminRoleID(ctx)
	if err != nil {
		return err
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			FirstName: core.CleanString(firstName),
			LastName:  core.CleanString(lastName),
			Email:     email,
			RoleID:    adminID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.RoleID = adminID
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	return cli.usrRepo.SetUserPassword(ctx, usr.ID, usr.PasswordHash)
}

func (cli *commandLine) adminRoleID(ctx context.Context) (int, error) {
	roles, err := cli.roleRepo.QueryAllRoles(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range roles {
		if r.Name == user.RoleAdmin.String() {
			return r.ID, nil
		}
	}
	return 0, errors.New("el rol Admin no existe; ejecute `seed` primero")
}
