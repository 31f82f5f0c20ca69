package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("analysis run not found")

// RunDetail is a persisted run with its serials and anomalies loaded.
type RunDetail struct {
	Run       AnalysisRun     `json:"run"`
	Serials   []SerialResult  `json:"serials"`
	Anomalies []AnomalyRecord `json:"anomalies"`
}

// Store provides persistence for analysis runs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// SaveReport persists a classification report as a new run.
	SaveReport(ctx context.Context, report *classify.JobReport, reportPath string) (*AnalysisRun, error)

	ListRuns(ctx context.Context) ([]AnalysisRun, error)
	ListRunsByJob(ctx context.Context, jobKey string) ([]AnalysisRun, error)
	GetRun(ctx context.Context, id uint) (*RunDetail, error)
	DeleteRun(ctx context.Context, id uint) error
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.APIDatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.APIDatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var (
		dialector gorm.Dialector
		err       error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dialector = postgres.Open(s.cfg.Postgres.DSN())
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	s.db, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&AnalysisRun{},
		&SerialResult{},
		&AnomalyRecord{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// SaveReport persists a classification report as a new run. The run, its
// serials, and its anomalies are written in one transaction.
func (s *store) SaveReport(
	ctx context.Context, report *classify.JobReport, reportPath string,
) (*AnalysisRun, error) {
	run := &AnalysisRun{
		JobKey:       report.JobKey,
		Profile:      report.Profile,
		TotalSerials: report.Summary.TotalSerials,
		Passed:       report.Summary.Passed,
		Failed:       report.Summary.Failed,
		DataMissing:  report.Summary.DataMissing,
		PassRate:     report.Summary.PassRate,
		FailRate:     report.Summary.FailRate,
		ReportPath:   reportPath,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}

		for i := range report.Serials {
			sr, err := newSerialResult(run.ID, &report.Serials[i])
			if err != nil {
				return err
			}

			if err := tx.Create(&sr).Error; err != nil {
				return fmt.Errorf("creating serial result: %w", err)
			}
		}

		for i := range report.Anomalies {
			ar := newAnomalyRecord(run.ID, &report.Anomalies[i])
			if err := tx.Create(&ar).Error; err != nil {
				return fmt.Errorf("creating anomaly record: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"job":     run.JobKey,
		"serials": run.TotalSerials,
	}).Info("Analysis run saved")

	return run, nil
}

func (s *store) ListRuns(ctx context.Context) ([]AnalysisRun, error) {
	var runs []AnalysisRun
	if err := s.db.WithContext(ctx).
		Order("id DESC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

func (s *store) ListRunsByJob(
	ctx context.Context, jobKey string,
) ([]AnalysisRun, error) {
	var runs []AnalysisRun
	if err := s.db.WithContext(ctx).
		Where("job_key = ?", jobKey).
		Order("id DESC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs for job %q: %w", jobKey, err)
	}

	return runs, nil
}

func (s *store) GetRun(ctx context.Context, id uint) (*RunDetail, error) {
	var run AnalysisRun
	if err := s.db.WithContext(ctx).First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrRunNotFound, id)
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	detail := &RunDetail{Run: run}

	if err := s.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("id ASC").
		Find(&detail.Serials).Error; err != nil {
		return nil, fmt.Errorf("loading serial results: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("id ASC").
		Find(&detail.Anomalies).Error; err != nil {
		return nil, fmt.Errorf("loading anomaly records: %w", err)
	}

	return detail, nil
}

// DeleteRun removes a run and its dependent rows.
func (s *store) DeleteRun(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&AnalysisRun{}, id)
		if result.Error != nil {
			return fmt.Errorf("deleting run: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", ErrRunNotFound, id)
		}

		if err := tx.Where("run_id = ?", id).
			Delete(&SerialResult{}).Error; err != nil {
			return fmt.Errorf("deleting serial results: %w", err)
		}

		if err := tx.Where("run_id = ?", id).
			Delete(&AnomalyRecord{}).Error; err != nil {
			return fmt.Errorf("deleting anomaly records: %w", err)
		}

		return nil
	})
}
