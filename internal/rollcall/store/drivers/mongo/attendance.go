package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type attendanceDoc struct {
	ID             string    `bson:"_id"`
	VolunteerID    string    `bson:"volunteer_id"`
	VolunteerName  string    `bson:"volunteer_name"`
	VolunteerEmail string    `bson:"volunteer_email"`
	TokenID        string    `bson:"token_id"`
	Timestamp      time.Time `bson:"timestamp"`
	RecordedBy     string    `bson:"recorded_by"`
}

type attendanceRepo struct {
	coll *mongo.Collection
	bind binder
}

func (r *attendanceRepo) CreateAttendanceRecord(ctx context.Context, rec domain.AttendanceRecord) error {
	_, err := r.coll.InsertOne(r.bind.apply(ctx), attendanceDoc{
		ID:             rec.ID,
		VolunteerID:    rec.VolunteerID,
		VolunteerName:  rec.VolunteerName,
		VolunteerEmail: rec.VolunteerEmail,
		TokenID:        rec.TokenID,
		Timestamp:      rec.Timestamp,
		RecordedBy:     rec.RecordedBy,
	})
	return mapErr(err)
}

func (r *attendanceRepo) ListAttendanceByVolunteer(ctx context.Context, volunteerID string, limit int) ([]domain.AttendanceRecord, error) {
	return r.list(ctx, bson.D{{Key: "volunteer_id", Value: volunteerID}}, limit)
}

func (r *attendanceRepo) ListAttendance(ctx context.Context, limit int) ([]domain.AttendanceRecord, error) {
	return r.list(ctx, bson.D{}, limit)
}

func (r *attendanceRepo) list(ctx context.Context, filter bson.D, limit int) ([]domain.AttendanceRecord, error) {
	ctx = r.bind.apply(ctx)
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	var docs []attendanceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}

	out := make([]domain.AttendanceRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.AttendanceRecord{
			ID:             d.ID,
			VolunteerID:    d.VolunteerID,
			VolunteerName:  d.VolunteerName,
			VolunteerEmail: d.VolunteerEmail,
			TokenID:        d.TokenID,
			Timestamp:      d.Timestamp.UTC(),
			RecordedBy:     d.RecordedBy,
		})
	}
	return out, nil
}
