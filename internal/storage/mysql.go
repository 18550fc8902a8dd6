package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"recruiter-go/internal/config"
	"recruiter-go/internal/constants"
	"recruiter-go/internal/matching"
	"recruiter-go/internal/storage/models"
)

// MySQL wraps the GORM client and exposes the repository methods the domain
// services consume.
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// Repository interface conformance.
var (
	_ matching.CandidateStore = (*MySQL)(nil)
	_ matching.JobStore       = (*MySQL)(nil)
)

// NewMySQL connects to MySQL, tunes the pool and migrates the schema.
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config must not be nil")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	case 4:
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Warn
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return m, nil
}

func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.Job{},
		&models.Candidate{},
		&models.CandidateNote{},
		&models.Interview{},
		&models.OutboxMessage{},
	)
}

// DB exposes the raw GORM handle for components that manage their own
// queries, like the outbox relay.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close closes the underlying connection pool.
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---- candidates ----

func (m *MySQL) GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).First(&candidate, "candidate_id = ?", candidateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, matching.NewDomainError("candidate", "GetCandidateByID", matching.ErrNotFound, "id=%s", candidateID)
		}
		return nil, matching.NewDomainError("candidate", "GetCandidateByID", matching.ErrPersistence, "%v", err)
	}
	return &candidate, nil
}

// ListCandidates filters by job and status, ordered by stored score then
// recency. limit <= 0 disables pagination.
func (m *MySQL) ListCandidates(ctx context.Context, jobID, status string, limit, offset int) ([]*models.Candidate, error) {
	query := m.db.WithContext(ctx).Model(&models.Candidate{})
	if jobID != "" {
		query = query.Where("job_id = ?", jobID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var candidates []*models.Candidate
	if err := query.Order("matching_score DESC, created_at DESC").Find(&candidates).Error; err != nil {
		return nil, matching.NewDomainError("candidate", "ListCandidates", matching.ErrPersistence, "%v", err)
	}
	return candidates, nil
}

// CountCandidatesByStatus returns how many candidates of the job sit in each
// pipeline status.
func (m *MySQL) CountCandidatesByStatus(ctx context.Context, jobID string) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Total  int64
	}
	var rows []statusCount
	err := m.db.WithContext(ctx).Model(&models.Candidate{}).
		Select("status, COUNT(*) AS total").
		Where("job_id = ?", jobID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, matching.NewDomainError("candidate", "CountCandidatesByStatus", matching.ErrPersistence, "%v", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (m *MySQL) ListCandidatesByJob(ctx context.Context, jobID string) ([]*models.Candidate, error) {
	var candidates []*models.Candidate
	err := m.db.WithContext(ctx).Where("job_id = ?", jobID).Find(&candidates).Error
	if err != nil {
		return nil, matching.NewDomainError("candidate", "ListCandidatesByJob", matching.ErrPersistence, "%v", err)
	}
	return candidates, nil
}

// BestCandidatesForJob relies on the stored score and the composite
// (job_id, matching_score) index; rejected candidates never rank.
func (m *MySQL) BestCandidatesForJob(ctx context.Context, jobID string, limit int) ([]*models.Candidate, error) {
	if limit <= 0 {
		limit = constants.DefaultBestLimit
	}
	var candidates []*models.Candidate
	err := m.db.WithContext(ctx).
		Where("job_id = ? AND status <> ?", jobID, constants.CandidateStatusRejected).
		Order("matching_score DESC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, matching.NewDomainError("candidate", "BestCandidatesForJob", matching.ErrPersistence, "%v", err)
	}
	return candidates, nil
}

func (m *MySQL) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	if err := m.db.WithContext(ctx).Create(candidate).Error; err != nil {
		return matching.NewDomainError("candidate", "CreateCandidate", matching.ErrPersistence, "%v", err)
	}
	return nil
}

func (m *MySQL) UpdateCandidateScore(ctx context.Context, candidateID string, score int) error {
	result := m.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("candidate_id = ?", candidateID).
		Update("matching_score", score)
	if result.Error != nil {
		return matching.NewDomainError("candidate", "UpdateCandidateScore", matching.ErrPersistence, "%v", result.Error)
	}
	if result.RowsAffected == 0 {
		return matching.NewDomainError("candidate", "UpdateCandidateScore", matching.ErrNotFound, "id=%s", candidateID)
	}
	return nil
}

// UpdateCandidateStatus sets the status and refreshes last_activity.
func (m *MySQL) UpdateCandidateStatus(ctx context.Context, candidateID, status string) error {
	result := m.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("candidate_id = ?", candidateID).
		Updates(map[string]interface{}{
			"status":        status,
			"last_activity": time.Now(),
		})
	if result.Error != nil {
		return matching.NewDomainError("candidate", "UpdateCandidateStatus", matching.ErrPersistence, "%v", result.Error)
	}
	if result.RowsAffected == 0 {
		return matching.NewDomainError("candidate", "UpdateCandidateStatus", matching.ErrNotFound, "id=%s", candidateID)
	}
	return nil
}

// ReassignCandidateJob moves a candidate to another job and stores the score
// computed against it.
func (m *MySQL) ReassignCandidateJob(ctx context.Context, candidateID, jobID string, score int) error {
	result := m.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("candidate_id = ?", candidateID).
		Updates(map[string]interface{}{
			"job_id":         jobID,
			"matching_score": score,
			"last_activity":  time.Now(),
		})
	if result.Error != nil {
		return matching.NewDomainError("candidate", "ReassignCandidateJob", matching.ErrPersistence, "%v", result.Error)
	}
	if result.RowsAffected == 0 {
		return matching.NewDomainError("candidate", "ReassignCandidateJob", matching.ErrNotFound, "id=%s", candidateID)
	}
	return nil
}

// DeleteCandidate removes the candidate together with its notes and
// interviews. Migration skips FK constraint creation, so dependents are
// deleted explicitly in one transaction.
func (m *MySQL) DeleteCandidate(ctx context.Context, candidateID string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CandidateNote{}, "candidate_id = ?", candidateID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Interview{}, "candidate_id = ?", candidateID).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Candidate{}, "candidate_id = ?", candidateID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return matching.NewDomainError("candidate", "DeleteCandidate", matching.ErrNotFound, "id=%s", candidateID)
		}
		return nil
	})
	if err != nil {
		if matching.IsNotFound(err) {
			return err
		}
		return matching.NewDomainError("candidate", "DeleteCandidate", matching.ErrPersistence, "%v", err)
	}
	return nil
}

func (m *MySQL) AddCandidateNote(ctx context.Context, note *models.CandidateNote) error {
	if err := m.db.WithContext(ctx).Create(note).Error; err != nil {
		return matching.NewDomainError("candidate", "AddCandidateNote", matching.ErrPersistence, "%v", err)
	}
	return nil
}

func (m *MySQL) ListCandidateNotes(ctx context.Context, candidateID string) ([]*models.CandidateNote, error) {
	var notes []*models.CandidateNote
	err := m.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, matching.NewDomainError("candidate", "ListCandidateNotes", matching.ErrPersistence, "%v", err)
	}
	return notes, nil
}

// ---- jobs ----

func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := m.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, matching.NewDomainError("job", "GetJobByID", matching.ErrNotFound, "id=%s", jobID)
		}
		return nil, matching.NewDomainError("job", "GetJobByID", matching.ErrPersistence, "%v", err)
	}
	return &job, nil
}

func (m *MySQL) ListJobs(ctx context.Context, status string) ([]*models.Job, error) {
	query := m.db.WithContext(ctx).Model(&models.Job{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var jobs []*models.Job
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, matching.NewDomainError("job", "ListJobs", matching.ErrPersistence, "%v", err)
	}
	return jobs, nil
}

func (m *MySQL) ListActiveJobs(ctx context.Context) ([]*models.Job, error) {
	return m.ListJobs(ctx, constants.JobStatusActive)
}

func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	if err := m.db.WithContext(ctx).Create(job).Error; err != nil {
		return matching.NewDomainError("job", "CreateJob", matching.ErrPersistence, "%v", err)
	}
	return nil
}

// UpdateJobWithRecalc saves the job and, when its matching-relevant fields
// changed, enqueues a score-recalculation event through the outbox in the
// same transaction. The HTTP caller returns as soon as this commits; the
// sweep itself runs later on the consumer.
func (m *MySQL) UpdateJobWithRecalc(ctx context.Context, job *models.Job, needsRecalc bool) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Job{}).Where("job_id = ?", job.JobID).Updates(map[string]interface{}{
			"title":                job.Title,
			"location":             job.Location,
			"contract_type":        job.ContractType,
			"salary":               job.Salary,
			"experience_level":     job.ExperienceLevel,
			"start_date":           job.StartDate,
			"languages":            job.Languages,
			"description":          job.Description,
			"skills_json":          job.SkillsJSON,
			"pipeline_stages_json": job.PipelineStagesJSON,
			"status":               job.Status,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return matching.NewDomainError("job", "UpdateJobWithRecalc", matching.ErrNotFound, "id=%s", job.JobID)
		}
		if !needsRecalc {
			return nil
		}

		payload, err := json.Marshal(ScoreRecalcMessage{JobID: job.JobID, Reason: "job_updated"})
		if err != nil {
			return err
		}
		return tx.Create(&models.OutboxMessage{
			AggregateID:      job.JobID,
			EventType:        "job.requirements.changed",
			Payload:          string(payload),
			TargetExchange:   constants.ScoreEventsExchange,
			TargetRoutingKey: constants.ScoreRecalcRoutingKey,
			Status:           models.OutboxStatusPending,
		}).Error
	})
	if err != nil {
		if matching.IsNotFound(err) {
			return err
		}
		return matching.NewDomainError("job", "UpdateJobWithRecalc", matching.ErrPersistence, "%v", err)
	}
	return nil
}

// DeleteJob removes the job and everything hanging off it: its candidates,
// their notes and the job's interviews, all in one transaction.
func (m *MySQL) DeleteJob(ctx context.Context, jobID string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidateIDs := tx.Model(&models.Candidate{}).Select("candidate_id").Where("job_id = ?", jobID)
		if err := tx.Where("candidate_id IN (?)", candidateIDs).Delete(&models.CandidateNote{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Interview{}, "job_id = ?", jobID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Candidate{}, "job_id = ?", jobID).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Job{}, "job_id = ?", jobID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return matching.NewDomainError("job", "DeleteJob", matching.ErrNotFound, "id=%s", jobID)
		}
		return nil
	})
	if err != nil {
		if matching.IsNotFound(err) {
			return err
		}
		return matching.NewDomainError("job", "DeleteJob", matching.ErrPersistence, "%v", err)
	}
	return nil
}

// ---- interviews ----

func (m *MySQL) CreateInterview(ctx context.Context, interview *models.Interview) error {
	if err := m.db.WithContext(ctx).Create(interview).Error; err != nil {
		return matching.NewDomainError("interview", "CreateInterview", matching.ErrPersistence, "%v", err)
	}
	return nil
}

func (m *MySQL) ListInterviewsForCandidate(ctx context.Context, candidateID string) ([]*models.Interview, error) {
	var interviews []*models.Interview
	err := m.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("scheduled_at ASC").
		Find(&interviews).Error
	if err != nil {
		return nil, matching.NewDomainError("interview", "ListInterviewsForCandidate", matching.ErrPersistence, "%v", err)
	}
	return interviews, nil
}
