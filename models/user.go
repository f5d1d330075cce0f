package models

import (
	"errors"
	"rollcall/db"
	"rollcall/utils"
)

type User struct {
	ID         uint64 `gorm:"primaryKey"`
	CreatedAt  int
	UpdatedAt  int
	Name       string  `gorm:"type:varchar(100)"`
	Email      string  `gorm:"type:varchar(150);index:uniq_email,unique"`
	Password   string  `gorm:"type:varchar(128)"`
	PassSalt   string  `gorm:"type:varchar(200)"`
	Grants     []Grant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	EmployeeID *string `gorm:"type:varchar(64);index"` // guards check in as this roster entry
	PushToken  string  `gorm:"type:varchar(128)"`
}

const saltSize = 60

var ErrInvalidLogin = errors.New("invalid email or password")

func UserCreate(name, email, plainTextPassword string, employeeID *string, permissions ...Permission) (u User, err error) {
	u.Email = email
	u.Name = name
	u.EmployeeID = employeeID
	u.SetPassword(plainTextPassword)
	for _, p := range permissions {
		u.Grants = append(u.Grants, Grant{Permission: p})
	}
	return u, db.Instance.Create(&u).Error
}

func (u *User) SetNewPushToken() {
	u.PushToken = utils.Sha512String(u.Email + utils.RandSalt(saltSize))
	db.Instance.Model(u).Update("push_token", u.PushToken)
}

func (u *User) SetPassword(plainTextPassword string) {
	u.PassSalt = utils.RandSalt(saltSize)
	u.Password = utils.Sha512String(plainTextPassword + u.PassSalt)
}

func UserLogin(email, plainTextPassword string) (u User, err error) {
	result := db.Instance.Preload("Grants").First(&u, "email = ?", email)
	if result.Error != nil {
		return User{}, ErrInvalidLogin
	}
	if u.Password != utils.Sha512String(plainTextPassword+u.PassSalt) {
		return User{}, ErrInvalidLogin
	}
	return u, nil
}

func (u *User) GetPermissions() []int {
	permissions := []int{}
	for _, grant := range u.Grants {
		permissions = append(permissions, int(grant.Permission))
	}
	return permissions
}

func (u *User) HasPermission(required Permission) bool {
	for _, permission := range u.Grants {
		if permission.Permission == required {
			return true
		}
	}
	return false
}

func (u *User) HasPermissions(required []Permission) bool {
	for _, permission := range required {
		if !u.HasPermission(permission) {
			return false
		}
	}
	return true
}

// PushTokensWith returns the push tokens of every user holding the permission
func PushTokensWith(permission Permission) (tokens []string) {
	err := db.Instance.Table("users").
		Joins("JOIN grants ON grants.user_id = users.id").
		Where("grants.permission = ? AND users.push_token != ''", permission).
		Distinct().
		Pluck("users.push_token", &tokens).Error
	if err != nil {
		return nil
	}
	return
}
