package auth

import (
	"rollcall/db"
	"rollcall/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const userIdKey = "id"

type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

func (s *Session) LoginUser(user *models.User) error {
	s.Set(userIdKey, user.ID)
	return s.Save()
}

func (s *Session) LogoutUser() {
	s.Delete(userIdKey)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = s.Save()
}

func (s *Session) User() (user models.User) {
	id, ok := s.Get(userIdKey).(uint64)
	if !ok {
		return
	}
	user.ID = id
	if db.Instance.Preload("Grants").First(&user).Error != nil {
		user.ID = 0
	}
	return
}
