package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("curso no encontrado")
	ErrCodeExists         = errors.New("el código del curso ya existe")
	ErrTeacherNotFound    = errors.New("maestro no encontrado")
	ErrCourseFull         = errors.New("el curso ha alcanzado su cupo máximo")
	ErrAlreadyEnrolled    = errors.New("el alumno ya está inscrito en este curso")
	ErrEnrollmentNotFound = errors.New("inscripción no encontrada")
	ErrHasEnrollments     = errors.New("no se puede eliminar el curso porque tiene alumnos inscritos, desactívalo en su lugar")
)

const defaultMaxCapacity = 30

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter) ([]Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		QueryTeachers(ctx context.Context) ([]Teacher, error)

		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		// CountActiveEnrollments counts rows in the Inscrito/Activo states.
		CountActiveEnrollments(ctx context.Context, courseID int) (int, error)
		CountEnrollments(ctx context.Context, courseID int) (int, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID int) ([]Enrollment, error)
	}

	// TeacherChecker confirms the assigned teacher exists.
	TeacherChecker interface {
		UserExists(ctx context.Context, id int) error
	}

	Service struct {
		repo     Repository
		teachers TeacherChecker
	}
)

func NewService(repo Repository, teachers TeacherChecker) *Service {
	return &Service{repo: repo, teachers: teachers}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

// GetByID returns a course with its enrolled students attached.
func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.Students, err = svc.repo.QueryEnrollmentsByCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.teachers.UserExists(ctx, nc.TeacherID); err != nil {
		return Course{}, ErrTeacherNotFound
	}

	c := Course{
		Name:        nc.Name,
		Code:        nc.Code,
		Description: nc.Description,
		StartDate:   nc.StartDate,
		EndDate:     nc.EndDate,
		TeacherID:   nc.TeacherID,
		MaxCapacity: nc.MaxCapacity,
		Credits:     nc.Credits,
		Cost:        nc.Cost,
		Schedule:    nc.Schedule,
		Classroom:   nc.Classroom,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if c.MaxCapacity == 0 {
		c.MaxCapacity = defaultMaxCapacity
	}
	if nc.IsActive != nil {
		c.IsActive = *nc.IsActive
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	if errors.Cause(err) == ErrCodeExists {
		return Course{}, core.NewConflictError(ErrCodeExists.Error())
	}
	return c, err
}

func (svc *Service) Update(ctx context.Context, id int, nc NewCourse) (Course, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.teachers.UserExists(ctx, nc.TeacherID); err != nil {
		return Course{}, ErrTeacherNotFound
	}
	c.Name = nc.Name
	c.Code = nc.Code
	c.Description = nc.Description
	c.StartDate = nc.StartDate
	c.EndDate = nc.EndDate
	c.TeacherID = nc.TeacherID
	c.MaxCapacity = nc.MaxCapacity
	c.Credits = nc.Credits
	c.Cost = nc.Cost
	c.Schedule = nc.Schedule
	c.Classroom = nc.Classroom
	if nc.IsActive != nil {
		c.IsActive = *nc.IsActive
	}
	c, err = svc.repo.UpdateCourse(ctx, c)
	if errors.Cause(err) == ErrCodeExists {
		return Course{}, core.NewConflictError(ErrCodeExists.Error())
	}
	return c, err
}

// Delete removes a course that nobody ever enrolled in. Courses with
// enrollments are deactivated instead.
func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetCourseByID(ctx, id); err != nil {
		return err
	}
	count, err := svc.repo.CountEnrollments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return core.NewConflictError(ErrHasEnrollments.Error())
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// Enroll registers a student on a course, enforcing the course's capacity.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	c, err := svc.repo.GetCourseByID(ctx, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	enrolled, err := svc.repo.CountActiveEnrollments(ctx, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if enrolled >= c.MaxCapacity {
		return Enrollment{}, core.NewConflictError(ErrCourseFull.Error())
	}

	e := Enrollment{
		CourseID:   ne.CourseID,
		StudentID:  ne.StudentID,
		EnrolledAt: time.Now().UTC(),
		Status:     EnrollmentEnrolled,
		Notes:      ne.Notes,
	}
	e, err = svc.repo.CreateEnrollment(ctx, e)
	if errors.Cause(err) == ErrAlreadyEnrolled {
		return Enrollment{}, core.NewConflictError(ErrAlreadyEnrolled.Error())
	}
	return e, err
}

func (svc *Service) UpdateEnrollment(ctx context.Context, id int, ue UpdateEnrollment) (Enrollment, error) {
	e, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	e.Status = ue.Status
	e.FinalGrade = ue.FinalGrade
	e.Notes = ue.Notes
	return svc.repo.UpdateEnrollment(ctx, e)
}

func (svc *Service) QueryTeachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx)
}

func (svc *Service) StudentsOfCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollmentsByCourse(ctx, courseID)
}

// MyEnrollments lists a student's own course assignments with payment state.
func (svc *Service) MyEnrollments(ctx context.Context, studentID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}
