package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// ProblemRepository reads the scheduling problem inputs. All reads happen
// once at solve start; the solver never touches the store during search.
type ProblemRepository struct {
	db *sqlx.DB
}

// NewProblemRepository constructs a ProblemRepository.
func NewProblemRepository(db *sqlx.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// ListTeachers returns every teacher with its forbidden mask.
func (r *ProblemRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, name, forbidden_mask, max_per_day FROM teachers ORDER BY id`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// ListClasses returns every class.
func (r *ProblemRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name FROM classes ORDER BY id`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListSubjects returns every subject configuration.
func (r *ProblemRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id_text, name, forbidden_mask, allow_same_day, preferred_periods FROM subject_configs ORDER BY id_text`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListVenues returns every venue with its concurrency capacity.
func (r *ProblemRepository) ListVenues(ctx context.Context) ([]models.Venue, error) {
	const query = `SELECT id, name, capacity FROM venues ORDER BY id`
	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, query); err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

// ListCurricula returns every curriculum requirement.
func (r *ProblemRepository) ListCurricula(ctx context.Context) ([]models.Curriculum, error) {
	const query = `SELECT id, class_id, subject_id, teacher_id, target_sessions, is_combined_class, combined_class_ids_json, week_type FROM curriculums ORDER BY id`
	var curricula []models.Curriculum
	if err := r.db.SelectContext(ctx, &curricula, query); err != nil {
		return nil, fmt.Errorf("list curricula: %w", err)
	}
	return curricula, nil
}

// ListFixedCourses returns every pinned assignment.
func (r *ProblemRepository) ListFixedCourses(ctx context.Context) ([]models.FixedCourse, error) {
	const query = `SELECT id, curriculum_id, slot, venue_id FROM fixed_courses ORDER BY id`
	var fixed []models.FixedCourse
	if err := r.db.SelectContext(ctx, &fixed, query); err != nil {
		return nil, fmt.Errorf("list fixed courses: %w", err)
	}
	return fixed, nil
}

// ListExclusions returns every declared unavailability record.
func (r *ProblemRepository) ListExclusions(ctx context.Context) ([]models.Exclusion, error) {
	const query = `SELECT id, kind, entity_id, slot FROM exclusions ORDER BY id`
	var exclusions []models.Exclusion
	if err := r.db.SelectContext(ctx, &exclusions, query); err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	return exclusions, nil
}
