package drafts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/services/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(models.DatabaseConfig{
		Type:     models.SQLite,
		FilePath: filepath.Join(t.TempDir(), "drafts.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := New(db)
	require.NoError(t, err)
	return svc
}

func TestSaveAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, &models.Draft{
		SenderID: "wa-123", SenderName: "Asha", Message: "is the FX3 free?",
		Tone: models.ToneProfessional, Text: "Yes, it is available.", Model: "llama-3.1-8b-instant", Confidence: 0.92,
	}))
	require.NoError(t, svc.Save(ctx, &models.Draft{
		SenderID: "wa-456", Message: "hey!",
		Tone: models.TonePersonal, Text: "Hey!", Model: "template", Confidence: 0.5, IsFallback: true,
	}))

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySender, err := svc.List(ctx, ListFilter{SenderID: "wa-123"})
	require.NoError(t, err)
	require.Len(t, bySender, 1)
	assert.Equal(t, "Yes, it is available.", bySender[0].Text)

	byTone, err := svc.List(ctx, ListFilter{Tone: models.TonePersonal})
	require.NoError(t, err)
	require.Len(t, byTone, 1)
	assert.True(t, byTone[0].IsFallback)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestListHonorsLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Save(ctx, &models.Draft{
			SenderID: "wa-123", Message: "msg", Tone: models.ToneProfessional, Text: "t", Model: "m",
		}))
	}

	out, err := svc.List(ctx, ListFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}
