package keap

import (
	"errors"
	"fmt"
	"time"

	"github.com/mdzio/go-keap/xmlrpc"
)

// TaskTable is the name of the table holding tasks and appointments.
const TaskTable = "ContactAction"

// TaskFields are the fields retrieved for tasks.
var TaskFields = []string{
	"Id", "ContactId", "ActionDescription", "ActionType", "ActionDate",
	"CompletionDate", "CreationNotes", "Priority", "UserID",
}

// Task is a to-do for a contact.
type Task struct {
	ID        int
	ContactID int
	Title     string
	Type      string
	Notes     string
	Priority  int
	UserID    int
	Due       time.Time
	Completed time.Time
}

// Done returns true, if the task is completed.
func (t *Task) Done() bool {
	return !t.Completed.IsZero()
}

// ReadFrom reads the field values from an xmlrpc.Query.
func (t *Task) ReadFrom(e *xmlrpc.Query) {
	t.ID = e.TryKey("Id").Int()
	t.ContactID = e.TryKey("ContactId").Int()
	t.Title = e.TryKey("ActionDescription").String()
	t.Type = e.TryKey("ActionType").String()
	t.Notes = e.TryKey("CreationNotes").String()
	t.Priority = e.TryKey("Priority").Int()
	t.UserID = e.TryKey("UserID").Int()
	t.Due = e.TryKey("ActionDate").Time()
	t.Completed = e.TryKey("CompletionDate").Time()
}

// ToValue returns the writable, non-empty fields as xmlrpc.Struct.
func (t *Task) ToValue() xmlrpc.Struct {
	f := fields{}
	f.int("ContactId", t.ContactID)
	f.str("ActionDescription", t.Title)
	f.str("ActionType", t.Type)
	f.str("CreationNotes", t.Notes)
	f.int("Priority", t.Priority)
	f.int("UserID", t.UserID)
	if !t.Due.IsZero() {
		f["ActionDate"] = xmlrpc.DateTime(t.Due)
	}
	if !t.Completed.IsZero() {
		f["CompletionDate"] = xmlrpc.DateTime(t.Completed)
	}
	return xmlrpc.Struct(f)
}

// SearchTasks retrieves a page of tasks matching the filter.
func (s *Service) SearchTasks(f Filter, p Page) ([]*Task, error) {
	e, err := s.query(TaskTable, f, TaskFields, p)
	if err != nil {
		return nil, err
	}
	var r []*Task
	for _, av := range e.Slice() {
		t := &Task{}
		t.ReadFrom(av)
		r = append(r, t)
	}
	if e.Err() != nil {
		return nil, fmt.Errorf("Invalid XML response for DataService.query(%s): %v", TaskTable, e.Err())
	}
	return r, nil
}

// CreateTask adds a task and returns its ID.
func (s *Service) CreateTask(t *Task) (int, error) {
	if t.ContactID == 0 || t.Title == "" {
		return 0, errors.New("Task needs a contact and a title")
	}
	id, err := s.add(TaskTable, t.ToValue())
	if err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

// CompleteTask marks a task as completed at the specified time.
func (s *Service) CompleteTask(id int, at time.Time) error {
	return s.update(TaskTable, id, xmlrpc.Struct{"CompletionDate": xmlrpc.DateTime(at)})
}

// DeleteTask deletes a task.
func (s *Service) DeleteTask(id int) error {
	return s.delete(TaskTable, id)
}
