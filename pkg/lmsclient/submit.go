package lmsclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/noah-isme/gema-lms/pkg/reconcile"
)

// File is one attachment to upload.
type File struct {
	Name string
	Data []byte
}

// SubmitRequest describes one submission attempt.
type SubmitRequest struct {
	AssignmentID uint
	// StudentID is the caller; it is only used to look up the current submission.
	StudentID uint
	Title     string
	Text      string
	Files     []File
}

// Submit re-checks eligibility and validates files locally, then creates the
// submission or records a new attempt on it. It is never retried.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*reconcile.Submission, error) {
	const op = "submit"

	assignment, err := c.Assignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	current, err := c.CurrentSubmission(ctx, req.AssignmentID, req.StudentID)
	if err != nil {
		return nil, err
	}

	if eligibility := reconcile.EvaluateEligibility(assignment, current, c.now()); !eligibility.Allowed() {
		return nil, &Error{
			Kind:        KindIneligible,
			Op:          op,
			Eligibility: eligibility,
			Err:         fmt.Errorf("submission closed: %s", eligibility),
		}
	}

	for _, file := range req.Files {
		if err := validateFile(assignment, file); err != nil {
			return nil, &Error{Kind: KindValidation, Op: op, Err: err}
		}
	}

	fields := map[string]string{"title": req.Title, "text": req.Text}
	httpReq := request{method: http.MethodPost, path: "/submissions"}
	if current != nil {
		httpReq.method = http.MethodPatch
		httpReq.path = fmt.Sprintf("/submissions/%d", current.ID)
	} else {
		fields["assignment_id"] = idString(req.AssignmentID)
	}

	body, contentType, err := multipartBody(fields, req.Files)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}
	httpReq.body = body
	httpReq.contentType = contentType

	var submission reconcile.Submission
	if err := c.write(ctx, op, httpReq, submissionSchema, &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

// DeleteFile removes one attachment. Deleting a file that is already gone
// succeeds and reports false.
func (c *Client) DeleteFile(ctx context.Context, fileID uint) (bool, error) {
	var result struct {
		ID      uint `json:"id"`
		Deleted bool `json:"deleted"`
	}
	req := request{method: http.MethodDelete, path: fmt.Sprintf("/submission-files/%d", fileID)}
	if err := c.write(ctx, "delete file", req, fileDeleteSchema, &result); err != nil {
		return false, err
	}
	return result.Deleted, nil
}

func validateFile(assignment reconcile.Assignment, file File) error {
	if file.Name == "" {
		return fmt.Errorf("file name is required")
	}
	if !assignment.AllowsFile(file.Name) {
		return fmt.Errorf("%s: file type not allowed", file.Name)
	}
	if !assignment.FitsSize(int64(len(file.Data))) {
		return fmt.Errorf("%s: %d bytes exceeds limit of %d", file.Name, len(file.Data), assignment.MaxFileSize)
	}
	return nil
}

func multipartBody(fields map[string]string, files []File) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
