package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/types"
	"github.com/funnelform/funnelform-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "funnelform", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := MigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// MigrateAll creates the schema plus the constraints AutoMigrate cannot
// express: cascading FKs and the partial unique index that enforces
// per-quiz sequence uniqueness among non-archived questions only.
func MigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(
		&types.User{},
		&types.RefreshToken{},
		&types.EmailToken{},
		&types.Quiz{},
		&types.Question{},
		&types.AnswerOption{},
		&types.UserSession{},
		&types.UserAnswer{},
	)
	if err != nil {
		return err
	}

	constraints := []struct {
		name string
		stmt string
	}{
		{"fk_refresh_token_user_id", `ALTER TABLE "refresh_token" ADD CONSTRAINT "fk_refresh_token_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`},
		{"fk_email_token_user_id", `ALTER TABLE "email_token" ADD CONSTRAINT "fk_email_token_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`},
		{"fk_quiz_user_id", `ALTER TABLE "quiz" ADD CONSTRAINT "fk_quiz_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`},
		{"fk_question_quiz_id", `ALTER TABLE "question" ADD CONSTRAINT "fk_question_quiz_id" FOREIGN KEY ("quiz_id") REFERENCES "quiz"("id") ON DELETE CASCADE`},
		{"fk_answer_option_question_id", `ALTER TABLE "answer_option" ADD CONSTRAINT "fk_answer_option_question_id" FOREIGN KEY ("question_id") REFERENCES "question"("id") ON DELETE CASCADE`},
		{"fk_user_session_quiz_id", `ALTER TABLE "user_session" ADD CONSTRAINT "fk_user_session_quiz_id" FOREIGN KEY ("quiz_id") REFERENCES "quiz"("id") ON DELETE CASCADE`},
		{"fk_user_answer_session_id", `ALTER TABLE "user_answer" ADD CONSTRAINT "fk_user_answer_session_id" FOREIGN KEY ("session_id") REFERENCES "user_session"("id") ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		var exists bool
		if err := db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name).Scan(&exists).Error; err != nil {
			return fmt.Errorf("Failed to check constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		if err := db.Exec(c.stmt).Error; err != nil {
			return fmt.Errorf("Failed to add %s: %w", c.name, err)
		}
	}

	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS "uq_question_quiz_sequence_active"
		ON "question" ("quiz_id", "sequence_order")
		WHERE NOT "is_archived"
	`).Error; err != nil {
		return fmt.Errorf("Failed to create uq_question_quiz_sequence_active: %w", err)
	}

	return nil
}
