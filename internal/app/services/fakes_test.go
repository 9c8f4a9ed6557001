package services

import (
	"context"
	"errors"
	"mime/multipart"
	"sort"
	"sync"
	"time"

	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/filestorage"
)

type fakeTx struct {
	calls int
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn database.TransactionFn) error {
	t.calls++
	return fn(ctx)
}

type fakeApplications struct {
	mu     sync.Mutex
	nextID int64
	apps   map[int64]*models.Application
}

func newFakeApplications(apps ...*models.Application) *fakeApplications {
	f := &fakeApplications{apps: map[int64]*models.Application{}}
	for _, a := range apps {
		f.apps[a.ID] = a
		if a.ID > f.nextID {
			f.nextID = a.ID
		}
	}
	return f
}

func (f *fakeApplications) Create(_ context.Context, a *models.Application) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.apps {
		if x.StudentID == a.StudentID && x.ScholarshipID == a.ScholarshipID {
			return 0, apperrors.ErrAlreadyApplied
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.Status = workflow.StatusPending
	a.SubmittedAt = time.Now()
	cp := *a
	f.apps[a.ID] = &cp
	return a.ID, nil
}

func (f *fakeApplications) GetByID(_ context.Context, id int64) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApplications) setStatus(id int64, st workflow.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[id].Status = st
}

func (f *fakeApplications) status(id int64) workflow.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apps[id].Status
}

func (f *fakeApplications) UpdateContent(_ context.Context, a *models.Application, editable []workflow.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.apps[a.ID]
	if !ok || cur.StudentID != a.StudentID {
		return apperrors.ErrApplicationNotEditable
	}
	for _, st := range editable {
		if cur.Status == st {
			cur.PersonalStatement = a.PersonalStatement
			cur.GPA = a.GPA
			cur.AdditionalInfo = a.AdditionalInfo
			return nil
		}
	}
	return apperrors.ErrApplicationNotEditable
}

func (f *fakeApplications) ApplyTransition(_ context.Context, c models.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.apps[c.ApplicationID]
	if !ok || cur.Status != c.From {
		return apperrors.ErrConcurrentUpdate
	}
	cur.Status = c.To
	switch {
	case c.Final:
		cur.FinalDecisionBy = &c.ActorID
		cur.FinalDecisionAt = &c.At
		cur.FinalDecisionComments = c.Comments
	case c.AssignOnly:
		cur.ReviewedBy = &c.ActorID
	default:
		cur.ReviewedBy = &c.ActorID
		cur.ReviewedAt = &c.At
		cur.ReviewerComments = c.Comments
	}
	return nil
}

func (f *fakeApplications) matching(flt models.ApplicationFilter, withStatus bool) []*models.Application {
	var out []*models.Application
	for _, a := range f.apps {
		if flt.StudentID != nil && a.StudentID != *flt.StudentID {
			continue
		}
		if flt.ScholarshipID != nil && a.ScholarshipID != *flt.ScholarshipID {
			continue
		}
		if flt.DecidedBy != nil && (a.FinalDecisionBy == nil || *a.FinalDecisionBy != *flt.DecidedBy) {
			continue
		}
		if flt.FinalOnly && a.FinalDecisionAt == nil {
			continue
		}
		if flt.ReviewedBy != nil && (a.ReviewedBy == nil || *a.ReviewedBy != *flt.ReviewedBy) {
			continue
		}
		if flt.Unassigned && a.ReviewedBy != nil {
			continue
		}
		if withStatus && len(flt.Statuses) > 0 {
			found := false
			for _, st := range flt.Statuses {
				found = found || a.Status == st
			}
			if !found {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeApplications) List(_ context.Context, flt models.ApplicationFilter) ([]*models.Application, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(flt, true)
	return all, int64(len(all)), nil
}

func (f *fakeApplications) CountByStatus(_ context.Context, flt models.ApplicationFilter) (map[workflow.Status]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[workflow.Status]int64{}
	for _, st := range workflow.AllStatuses() {
		counts[st] = 0
	}
	for _, a := range f.matching(flt, false) {
		counts[a.Status]++
	}
	return counts, nil
}

func (f *fakeApplications) CountApproved(_ context.Context, scholarshipID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.apps {
		if a.ScholarshipID == scholarshipID && a.Status == workflow.StatusApproved {
			n++
		}
	}
	return n, nil
}

func (f *fakeApplications) ExistsForStudent(_ context.Context, studentID, scholarshipID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.apps {
		if a.StudentID == studentID && a.ScholarshipID == scholarshipID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeApplications) ListStudentIDsByStatus(_ context.Context, scholarshipID int64, status workflow.Status) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, a := range f.apps {
		if a.ScholarshipID == scholarshipID && a.Status == status {
			ids = append(ids, a.StudentID)
		}
	}
	return ids, nil
}

type fakeScholarships struct {
	items   map[int64]*models.Scholarship
	docReqs map[int64][]*models.DocumentRequirement
	reqs    map[int64][]*models.ScholarshipRequirement
	apps    *fakeApplications
	locked  []int64
}

func newFakeScholarships(apps *fakeApplications, items ...*models.Scholarship) *fakeScholarships {
	f := &fakeScholarships{
		items:   map[int64]*models.Scholarship{},
		docReqs: map[int64][]*models.DocumentRequirement{},
		reqs:    map[int64][]*models.ScholarshipRequirement{},
		apps:    apps,
	}
	for _, s := range items {
		f.items[s.ID] = s
	}
	return f
}

func (f *fakeScholarships) withCounts(s *models.Scholarship) *models.Scholarship {
	cp := *s
	if f.apps != nil {
		cp.ApplicationCount, cp.ApprovedCount = 0, 0
		for _, a := range f.apps.apps {
			if a.ScholarshipID == s.ID {
				cp.ApplicationCount++
				if a.Status == workflow.StatusApproved {
					cp.ApprovedCount++
				}
			}
		}
	}
	return &cp
}

func (f *fakeScholarships) Create(_ context.Context, s *models.Scholarship) (int64, error) {
	s.ID = int64(len(f.items) + 1)
	f.items[s.ID] = s
	return s.ID, nil
}

func (f *fakeScholarships) Update(_ context.Context, s *models.Scholarship) error {
	if _, ok := f.items[s.ID]; !ok {
		return apperrors.ErrScholarshipNotFound
	}
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeScholarships) GetByID(_ context.Context, id int64) (*models.Scholarship, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrScholarshipNotFound
	}
	return f.withCounts(s), nil
}

func (f *fakeScholarships) LockByID(ctx context.Context, id int64) (*models.Scholarship, error) {
	f.locked = append(f.locked, id)
	s, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrScholarshipNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScholarships) List(_ context.Context, flt models.ScholarshipFilter) ([]*models.Scholarship, int64, error) {
	var out []*models.Scholarship
	for _, s := range f.items {
		if flt.ActiveOnly && !s.IsActive {
			continue
		}
		if flt.State == models.ScholarshipStateOpen && !s.Deadline.After(flt.Now) {
			continue
		}
		out = append(out, f.withCounts(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeScholarships) ListClosingBetween(_ context.Context, from, to time.Time) ([]*models.Scholarship, error) {
	var out []*models.Scholarship
	for _, s := range f.items {
		if s.IsActive && s.Deadline.After(from) && !s.Deadline.After(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeScholarships) SetActive(_ context.Context, id int64, active bool) error {
	s, ok := f.items[id]
	if !ok {
		return apperrors.ErrScholarshipNotFound
	}
	s.IsActive = active
	return nil
}

func (f *fakeScholarships) Delete(_ context.Context, id int64) error {
	if f.withCounts(f.items[id]).ApplicationCount > 0 {
		return apperrors.ErrScholarshipHasApps
	}
	delete(f.items, id)
	return nil
}

func (f *fakeScholarships) CountAll(_ context.Context) (int64, int64, error) {
	var active int64
	for _, s := range f.items {
		if s.IsActive {
			active++
		}
	}
	return int64(len(f.items)), active, nil
}

func (f *fakeScholarships) AddRequirement(_ context.Context, r *models.ScholarshipRequirement) (int64, error) {
	r.ID = int64(len(f.reqs[r.ScholarshipID]) + 1)
	f.reqs[r.ScholarshipID] = append(f.reqs[r.ScholarshipID], r)
	return r.ID, nil
}

func (f *fakeScholarships) DeleteRequirement(_ context.Context, scholarshipID, requirementID int64) error {
	for i, r := range f.reqs[scholarshipID] {
		if r.ID == requirementID {
			f.reqs[scholarshipID] = append(f.reqs[scholarshipID][:i], f.reqs[scholarshipID][i+1:]...)
			return nil
		}
	}
	return apperrors.ErrRequirementNotFound
}

func (f *fakeScholarships) ListRequirements(_ context.Context, id int64) ([]*models.ScholarshipRequirement, error) {
	return f.reqs[id], nil
}

func (f *fakeScholarships) SetDocumentRequirements(_ context.Context, id int64, ids []int64) error {
	f.docReqs[id] = nil
	for _, rid := range ids {
		f.docReqs[id] = append(f.docReqs[id], &models.DocumentRequirement{ID: rid, DocumentType: models.DocTranscript, IsRequired: true})
	}
	return nil
}

func (f *fakeScholarships) ListDocumentRequirements(_ context.Context, id int64) ([]*models.DocumentRequirement, error) {
	return f.docReqs[id], nil
}

type fakeDocuments struct {
	catalogue []*models.DocumentRequirement
	docs      []*models.ApplicationDocument
	apps      *fakeApplications
	onDelete  func()
}

// editable mirrors the status guard of the document writes. Without apps every application is editable.
func (f *fakeDocuments) editable(appID int64, allowed []workflow.Status) bool {
	if f.apps == nil {
		return true
	}
	st := f.apps.status(appID)
	for _, a := range allowed {
		if a == st {
			return true
		}
	}
	return false
}

func (f *fakeDocuments) CreateRequirement(_ context.Context, d *models.DocumentRequirement) (int64, error) {
	d.ID = int64(len(f.catalogue) + 1)
	f.catalogue = append(f.catalogue, d)
	return d.ID, nil
}

func (f *fakeDocuments) ListRequirements(context.Context) ([]*models.DocumentRequirement, error) {
	return f.catalogue, nil
}

func (f *fakeDocuments) RequirementExists(_ context.Context, t models.DocumentType, name *string) (bool, error) {
	for _, d := range f.catalogue {
		if d.DocumentType == t && derefString(d.CustomName) == derefString(name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocuments) CreateDocument(_ context.Context, d *models.ApplicationDocument, editable []workflow.Status) (int64, error) {
	if !f.editable(d.ApplicationID, editable) {
		return 0, apperrors.ErrApplicationNotEditable
	}
	d.ID = int64(len(f.docs) + 1)
	f.docs = append(f.docs, d)
	return d.ID, nil
}

func (f *fakeDocuments) ListByApplication(_ context.Context, appID int64) ([]*models.ApplicationDocument, error) {
	var out []*models.ApplicationDocument
	for _, d := range f.docs {
		if d.ApplicationID == appID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) GetDocument(_ context.Context, appID, docID int64) (*models.ApplicationDocument, error) {
	for _, d := range f.docs {
		if d.ApplicationID == appID && d.ID == docID {
			return d, nil
		}
	}
	return nil, apperrors.ErrDocumentNotFound
}

func (f *fakeDocuments) DeleteDocument(_ context.Context, appID, docID int64, editable []workflow.Status) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	for i, d := range f.docs {
		if d.ApplicationID == appID && d.ID == docID {
			if !f.editable(appID, editable) {
				return apperrors.ErrApplicationNotEditable
			}
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrDocumentNotFound
}

type fakeUsers struct {
	users    map[int64]*models.User
	nonApply map[int64][]int64
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) ListActiveIDsByRole(_ context.Context, role models.RoleType) ([]int64, error) {
	var ids []int64
	for id, u := range f.users {
		if u.RoleType == role && u.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeUsers) ListStudentsWithoutApplication(_ context.Context, scholarshipID int64) ([]int64, error) {
	return f.nonApply[scholarshipID], nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []Notice
	roles   []models.RoleType
	err     error
}

func (f *fakeNotifier) Notify(_ context.Context, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return f.err
}

func (f *fakeNotifier) NotifyRole(_ context.Context, role models.RoleType, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, role)
	f.notices = append(f.notices, n)
	return f.err
}

func (f *fakeNotifier) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, n := range f.notices {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

type fakeStorage struct {
	saved   []string
	deleted []string
	failAt  int
	onSave  func()
}

func (f *fakeStorage) Save(_ context.Context, fh *multipart.FileHeader, subPath string, _ filestorage.UploadRules) (*filestorage.StoredFile, error) {
	if f.failAt > 0 && len(f.saved)+1 == f.failAt {
		return nil, errors.New("disk full")
	}
	p := subPath + "/" + fh.Filename
	f.saved = append(f.saved, p)
	if f.onSave != nil {
		f.onSave()
	}
	return &filestorage.StoredFile{Path: p, Filename: fh.Filename, FileSize: fh.Size, MimeType: "application/pdf"}, nil
}

func (f *fakeStorage) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeStorage) FullPath(path string) (string, error) {
	return "/data/" + path, nil
}

type fakeNotifications struct {
	rows    []*models.Notification
	failNew bool
}

func (f *fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	if f.failNew {
		return errors.New("insert failed")
	}
	n.ID = int64(len(f.rows) + 1)
	n.CreatedAt = time.Now()
	f.rows = append(f.rows, n)
	return nil
}

func (f *fakeNotifications) ListForUser(_ context.Context, userID int64, unreadOnly bool, offset uint64, limit int) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	for _, n := range f.rows {
		if n.RecipientID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id, userID int64) error {
	for _, n := range f.rows {
		if n.ID == id && n.RecipientID == userID {
			n.IsRead = true
			return nil
		}
	}
	return apperrors.ErrNotificationNotFound
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var c int64
	for _, n := range f.rows {
		if n.RecipientID == userID && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID int64) (int64, error) {
	var c int64
	for _, n := range f.rows {
		if n.RecipientID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (f *fakeNotifications) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var keep []*models.Notification
	var deleted int64
	for _, n := range f.rows {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		keep = append(keep, n)
	}
	f.rows = keep
	return deleted, nil
}

func (f *fakeNotifications) CountAll(context.Context) (int64, int64, error) {
	var unread int64
	for _, n := range f.rows {
		if !n.IsRead {
			unread++
		}
	}
	return int64(len(f.rows)), unread, nil
}
