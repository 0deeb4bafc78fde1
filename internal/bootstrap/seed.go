package bootstrap

import (
	"context"
	"fmt"
	"log"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/user/dto"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	userService "anoa.com/yogaschool/internal/modules/user/service"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Chat{},
		&entity.ChatMember{},
		&entity.Message{},
		&entity.MessageRead{},
		&entity.Setting{},
		&entity.Attachment{},
	)
}

var developmentUsers = []dto.SignupInput{
	{Name: "Studio Admin", Email: "admin@yoga.school", Password: "admin123", SecurityQuestion: "Favourite asana?", SecurityAnswer: "tadasana"},
	{Name: "Priya Teacher", Email: "teacher@yoga.school", Password: "teacher123", SecurityQuestion: "Favourite asana?", SecurityAnswer: "vrikshasana"},
	{Name: "Rohan Student", Email: "student@yoga.school", Password: "student123", SecurityQuestion: "Favourite asana?", SecurityAnswer: "balasana"},
}

// SeedDevelopmentUsers signs up an admin, a teacher and a student on an empty directory.
// Going through signup keeps the ordinal role assignment intact.
func SeedDevelopmentUsers(ctx context.Context, users userRepo.UserRepository, auth userService.AuthService) error {
	existing, err := users.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Println("Users already exist, skipping seed")
		return nil
	}

	for _, input := range developmentUsers {
		user, err := auth.Signup(ctx, input)
		if err != nil {
			return fmt.Errorf("seed %s: %w", input.Email, err)
		}
		log.Printf("Seeded %s (%s) password: %s", user.Email, user.Role, input.Password)
	}
	return nil
}
