// Package mongostore keeps the roster, enrolled identities and the attendance
// ledger in MongoDB. Uniqueness of (employee_id, day) is a unique index.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rollcall/models"
	"rollcall/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

type Store struct {
	client     *mongo.Client
	attendance *mongo.Collection
	identities *mongo.Collection
	employees  *mongo.Collection
	branches   *mongo.Collection
}

// Connect opens the database and makes sure the indexes exist
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:     client,
		attendance: db.Collection("attendance"),
		identities: db.Collection("enrolled_identities"),
		employees:  db.Collection("employees"),
		branches:   db.Collection("branches"),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	zap.S().Infof("Connected to MongoDB: %s", database)
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	if _, err := s.attendance.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employee_id", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "day", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create attendance indexes: %w", err)
	}
	if _, err := s.employees.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "active", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create employees indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	var v T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	return &v, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, sort bson.D) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return results, nil
}

func replace(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

//
// IdentityStore
//

func (s *Store) GetEnrolledIdentity(ctx context.Context, employeeID string) (*models.EnrolledIdentity, error) {
	return findOne[models.EnrolledIdentity](ctx, s.identities, employeeID)
}

func (s *Store) SaveEnrolledIdentity(ctx context.Context, identity *models.EnrolledIdentity) error {
	return replace(ctx, s.identities, identity.EmployeeID, identity)
}

//
// Ledger
//

func (s *Store) FindRecord(ctx context.Context, employeeID, day string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := s.attendance.FindOne(ctx, bson.M{"employee_id": employeeID, "day": day}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

func (s *Store) CreateRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := s.attendance.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateRecord
	}
	return err
}

func (s *Store) UpdateCheckout(ctx context.Context, recordID string, t time.Time) error {
	res, err := s.attendance.UpdateOne(ctx,
		bson.M{"_id": recordID, "checkout_time": nil},
		bson.M{"$set": bson.M{"checkout_time": t}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	count, err := s.attendance.CountDocuments(ctx, bson.M{"_id": recordID})
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrAlreadyCheckedOut
}

func (s *Store) ListEmployeesWithoutRecord(ctx context.Context, day string) ([]models.Employee, error) {
	var present []string
	if err := s.attendance.Distinct(ctx, "employee_id", bson.M{"day": day}).Decode(&present); err != nil {
		return nil, fmt.Errorf("distinct attendance: %w", err)
	}
	filter := bson.M{"active": true}
	if len(present) > 0 {
		filter["_id"] = bson.M{"$nin": present}
	}
	return findAll[models.Employee](ctx, s.employees, filter, bson.D{{Key: "_id", Value: 1}})
}

func (s *Store) ListRecords(ctx context.Context, day string) ([]models.AttendanceRecord, error) {
	return findAll[models.AttendanceRecord](ctx, s.attendance, bson.M{"day": day},
		bson.D{{Key: "employee_name", Value: 1}, {Key: "employee_id", Value: 1}})
}

//
// Roster
//

func (s *Store) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	return findOne[models.Employee](ctx, s.employees, id)
}

func (s *Store) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = employee.UpdatedAt
	}
	return replace(ctx, s.employees, employee.ID, employee)
}

func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	return findAll[models.Employee](ctx, s.employees, bson.M{}, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
}

func (s *Store) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	return findOne[models.Branch](ctx, s.branches, id)
}

func (s *Store) SaveBranch(ctx context.Context, branch *models.Branch) error {
	branch.UpdatedAt = time.Now()
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = branch.UpdatedAt
	}
	return replace(ctx, s.branches, branch.ID, branch)
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	return findAll[models.Branch](ctx, s.branches, bson.M{}, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
}
