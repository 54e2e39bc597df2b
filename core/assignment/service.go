package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("tarea no encontrada")
	ErrSubmissionNotFound = errors.New("entrega no encontrada")
)

const attachmentBucket = "tareas"

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		QueryAssignmentsByCourse(ctx context.Context, courseID int) ([]Assignment, error)
		QueryAssignmentsForStudent(ctx context.Context, studentID int) ([]Assignment, error)
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int) error
		CountSubmissions(ctx context.Context, assignmentID int) (int, error)

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id int) (Submission, error)
		GetStudentSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID int) ([]Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	}

	Service struct {
		repo  Repository
		files core.FileStorage
	}
)

func NewService(repo Repository, files core.FileStorage) *Service {
	return &Service{repo: repo, files: files}
}

// QueryByCourse lists a course's active assignments. When studentID is
// non-zero, each assignment carries that student's submission state.
func (svc *Service) QueryByCourse(ctx context.Context, courseID, studentID int) ([]Assignment, error) {
	assignments, err := svc.repo.QueryAssignmentsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if studentID == 0 {
		return assignments, nil
	}
	for i := range assignments {
		sub, err := svc.repo.GetStudentSubmission(ctx, assignments[i].ID, studentID)
		switch errors.Cause(err) {
		case nil:
			assignments[i].MySubmission = &sub
			assignments[i].Submitted = true
		case ErrSubmissionNotFound:
		default:
			return nil, err
		}
	}
	return assignments, nil
}

// QueryMine lists every active assignment of the courses the student is
// enrolled in, joined with the student's own submissions.
func (svc *Service) QueryMine(ctx context.Context, studentID int) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsForStudent(ctx, studentID)
}

func (svc *Service) GetByID(ctx context.Context, id, studentID int) (Assignment, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if studentID != 0 {
		sub, err := svc.repo.GetStudentSubmission(ctx, id, studentID)
		switch errors.Cause(err) {
		case nil:
			a.MySubmission = &sub
			a.Submitted = true
		case ErrSubmissionNotFound:
		default:
			return Assignment{}, err
		}
	}
	return a, nil
}

func (svc *Service) Create(ctx context.Context, na NewAssignment, attachment *core.FileUpload, createdBy int) (Assignment, error) {
	a := Assignment{
		CourseID:    na.CourseID,
		Title:       na.Title,
		Description: na.Description,
		AssignedAt:  time.Now().UTC(),
		DueDate:     na.DueDate,
		TotalPoints: na.TotalPoints,
		IsActive:    true,
		CreatedBy:   createdBy,
	}
	if attachment != nil {
		path, err := svc.files.Save(
			attachmentBucket, attachment.Filename, attachment.ContentType,
			attachment.Size, attachment.Content, core.DocumentPolicy,
		)
		if err != nil {
			return Assignment{}, err
		}
		a.Attachment = path
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) Update(ctx context.Context, id int, ua UpdateAssignment, attachment *core.FileUpload) (Assignment, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	a.Title = ua.Title
	a.Description = ua.Description
	a.DueDate = ua.DueDate
	a.TotalPoints = ua.TotalPoints

	if attachment != nil {
		path, err := svc.files.Save(
			attachmentBucket, attachment.Filename, attachment.ContentType,
			attachment.Size, attachment.Content, core.DocumentPolicy,
		)
		if err != nil {
			return Assignment{}, err
		}
		if a.Attachment != "" {
			_ = svc.files.Remove(a.Attachment)
		}
		a.Attachment = path
	}
	return svc.repo.UpdateAssignment(ctx, a)
}

// Delete removes an assignment without submissions, or deactivates it when
// submissions exist so the students' work stays reachable.
func (svc *Service) Delete(ctx context.Context, id int) error {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := svc.repo.CountSubmissions(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		a.IsActive = false
		_, err = svc.repo.UpdateAssignment(ctx, a)
		return err
	}
	if a.Attachment != "" {
		_ = svc.files.Remove(a.Attachment)
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// Submit records or replaces a student's submission for an assignment.
func (svc *Service) Submit(ctx context.Context, assignmentID, studentID int, ns NewSubmission, file *core.FileUpload) (Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return Submission{}, err
	}

	var storedFile string
	if file != nil {
		path, err := svc.files.Save(
			attachmentBucket, file.Filename, file.ContentType,
			file.Size, file.Content, core.DocumentPolicy,
		)
		if err != nil {
			return Submission{}, err
		}
		storedFile = path
	}

	existing, err := svc.repo.GetStudentSubmission(ctx, assignmentID, studentID)
	switch errors.Cause(err) {
	case nil:
		if storedFile != "" && existing.File != "" {
			_ = svc.files.Remove(existing.File)
		}
		if storedFile != "" {
			existing.File = storedFile
		}
		existing.Comments = ns.Comments
		existing.SubmittedAt = time.Now().UTC()
		existing.Status = SubmissionSubmitted
		return svc.repo.UpdateSubmission(ctx, existing)
	case ErrSubmissionNotFound:
		s := Submission{
			AssignmentID: assignmentID,
			StudentID:    studentID,
			SubmittedAt:  time.Now().UTC(),
			File:         storedFile,
			Comments:     ns.Comments,
			Status:       SubmissionSubmitted,
		}
		return svc.repo.CreateSubmission(ctx, s)
	default:
		return Submission{}, err
	}
}

func (svc *Service) QuerySubmissions(ctx context.Context, assignmentID int) ([]Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissionsByAssignment(ctx, assignmentID)
}

// Grade scores a submission on behalf of the grading teacher.
func (svc *Service) Grade(ctx context.Context, submissionID int, gs GradeSubmission, gradedBy int) (Submission, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	now := time.Now().UTC()
	s.Grade = &gs.Grade
	s.Comments = gs.Comments
	s.GradedBy = gradedBy
	s.GradedAt = &now
	s.Status = SubmissionGraded
	return svc.repo.UpdateSubmission(ctx, s)
}
