package mongostore

import (
	"context"
	"testing"

	"github.com/cordlink/cordlink/gateway"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("load", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "bot"},
			{Key: "session_id", Value: "abcdef"},
			{Key: "seq", Value: int64(42)},
		}))

		state, err := New(mt.Coll, "bot").LoadResume(context.Background())
		if err != nil {
			mt.Fatal("failed to load:", err)
		}

		if state.SessionID != "abcdef" || state.Sequence != 42 {
			mt.Fatalf("unexpected state: %#v", state)
		}
	})

	mt.Run("load missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := New(mt.Coll, "bot").LoadResume(context.Background())
		if !errors.Is(err, gateway.ErrNoResumeState) {
			mt.Fatal("expected ErrNoResumeState, got", err)
		}
	})

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := New(mt.Coll, "bot").SaveResume(context.Background(), gateway.ResumeState{
			SessionID: "abcdef",
			Sequence:  43,
		})
		if err != nil {
			mt.Fatal("failed to save:", err)
		}
	})

	mt.Run("clear", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		if err := New(mt.Coll, "bot").ClearResume(context.Background()); err != nil {
			mt.Fatal("failed to clear:", err)
		}
	})
}
