package repositories

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/workflow"
)

var editableStatuses = []workflow.Status{workflow.StatusPending, workflow.StatusAdditionalInfoRequired}

func TestTransitionQueryIsConditionalOnCurrentStatus(t *testing.T) {
	repo := NewApplicationRepository(nil)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("assign", func(t *testing.T) {
		sql, args, err := repo.transitionQuery(models.StatusChange{
			ApplicationID: 7,
			From:          workflow.StatusPending,
			To:            workflow.StatusUnderReview,
			ActorID:       20,
			AssignOnly:    true,
		}, at).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE applications SET status = $1, updated_at = $2, reviewed_by = $3 WHERE id = $4 AND status = $5", sql)
		assert.Equal(t, []interface{}{workflow.StatusUnderReview, at, int64(20), int64(7), workflow.StatusPending}, args)
	})

	t.Run("final decision", func(t *testing.T) {
		sql, args, err := repo.transitionQuery(models.StatusChange{
			ApplicationID: 7,
			From:          workflow.StatusOSASApproved,
			To:            workflow.StatusApproved,
			ActorID:       30,
			Final:         true,
		}, at).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "final_decision_by = $3")
		assert.NotContains(t, sql, "reviewed_by")
		assert.Contains(t, sql, "WHERE id = $6 AND status = $7")
		assert.Equal(t, workflow.StatusOSASApproved, args[len(args)-1])
	})

	t.Run("recommendation", func(t *testing.T) {
		sql, _, err := repo.transitionQuery(models.StatusChange{
			ApplicationID: 7,
			From:          workflow.StatusUnderReview,
			To:            workflow.StatusOSASRejected,
			ActorID:       20,
		}, at).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "reviewed_at = $4")
		assert.Contains(t, sql, "WHERE id = $6 AND status = $7")
	})
}

func TestLockQueryTakesRowLock(t *testing.T) {
	sql, args, err := NewScholarshipRepository(nil).lockQuery(3).ToSql()
	require.NoError(t, err)
	assert.Regexp(t, `FROM scholarships s WHERE s\.id = \$1 FOR UPDATE$`, sql)
	assert.Equal(t, []interface{}{int64(3)}, args)
}

func TestApplicationFilter(t *testing.T) {
	base := func() squirrel.SelectBuilder {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).Select("a.id").From("applications a")
	}
	reviewer := int64(20)

	tests := []struct {
		name     string
		filter   models.ApplicationFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "reviewed by",
			filter:   models.ApplicationFilter{ReviewedBy: &reviewer},
			wantSQL:  "SELECT a.id FROM applications a WHERE a.reviewed_by = $1",
			wantArgs: []interface{}{int64(20)},
		},
		{
			name:    "unassigned",
			filter:  models.ApplicationFilter{Unassigned: true},
			wantSQL: "SELECT a.id FROM applications a WHERE a.reviewed_by IS NULL",
		},
		{
			name:     "statuses",
			filter:   models.ApplicationFilter{Statuses: []workflow.Status{workflow.StatusOSASApproved, workflow.StatusOSASRejected}},
			wantSQL:  "SELECT a.id FROM applications a WHERE a.status IN ($1,$2)",
			wantArgs: []interface{}{workflow.StatusOSASApproved, workflow.StatusOSASRejected},
		},
		{
			name:     "search escapes wildcards",
			filter:   models.ApplicationFilter{Search: `50%_off\`},
			wantSQL:  `SELECT a.id FROM applications a WHERE (st.first_name ILIKE $1 ESCAPE '\' OR st.last_name ILIKE $2 ESCAPE '\' OR st.email ILIKE $3 ESCAPE '\' OR s.title ILIKE $4 ESCAPE '\')`,
			wantArgs: []interface{}{`%50\%\_off\\%`, `%50\%\_off\\%`, `%50\%\_off\\%`, `%50\%\_off\\%`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := applyApplicationFilter(base(), tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%juan%", likePattern("juan"))
	assert.Equal(t, `%\_%`, likePattern("_"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestDocumentWritesAreStatusGuarded(t *testing.T) {
	repo := NewDocumentRepository(nil)

	t.Run("insert", func(t *testing.T) {
		req := int64(4)
		sql, args, err := repo.createDocumentQuery(&models.ApplicationDocument{
			ApplicationID: 9,
			RequirementID: &req,
			Name:          "transcript.pdf",
			FilePath:      "applications/9/x.pdf",
			FileSize:      2048,
			MimeType:      "application/pdf",
		}, editableStatuses).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO application_documents (application_id,requirement_id,name,file_path,file_size,mime_type) "+
			"SELECT a.id, $1::bigint, $2::varchar, $3::varchar, $4::bigint, $5::varchar FROM applications a "+
			"WHERE a.id = $6 AND a.status IN ($7,$8) FOR SHARE RETURNING id, uploaded_at", sql)
		assert.Equal(t, []interface{}{&req, "transcript.pdf", "applications/9/x.pdf", int64(2048), "application/pdf",
			int64(9), workflow.StatusPending, workflow.StatusAdditionalInfoRequired}, args)
	})

	t.Run("delete", func(t *testing.T) {
		sql, args, err := repo.deleteDocumentQuery(9, 12, editableStatuses).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM application_documents WHERE application_id = $1 AND id = $2 AND "+
			"application_id IN (SELECT id FROM applications WHERE id = $3 AND status IN ($4,$5) FOR SHARE)", sql)
		assert.Equal(t, []interface{}{int64(9), int64(12), int64(9), workflow.StatusPending, workflow.StatusAdditionalInfoRequired}, args)
	})
}
