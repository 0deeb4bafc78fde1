package dto

import "anoa.com/yogaschool/internal/entity"

type UserListResponse struct {
	Users []*entity.User `json:"users"`
}

type DeletedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DeleteUserResponse struct {
	Message     string      `json:"message"`
	DeletedUser DeletedUser `json:"deletedUser"`
}
