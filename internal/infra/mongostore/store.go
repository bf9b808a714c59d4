// Package mongostore implements port.Store on MongoDB. Collections mirror
// the canonical data model: costcenters, accountspendtypes, actuals,
// anticipateds and uploadversions.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
)

var tracer = otel.Tracer("mongostore")

// Store is a MongoDB-backed port.Store.
type Store struct {
	client       *mongo.Client
	costCenters  *mongo.Collection
	accounts     *mongo.Collection
	actuals      *mongo.Collection
	anticipateds *mongo.Collection
	versions     *mongo.Collection
	cb           *gobreaker.CircuitBreaker
	cfg          resilience.Config
	logger       *zap.Logger
}

// Connect dials uri, selects database and ensures the version index.
func Connect(ctx context.Context, uri, database string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:       client,
		costCenters:  db.Collection("costcenters"),
		accounts:     db.Collection("accountspendtypes"),
		actuals:      db.Collection("actuals"),
		anticipateds: db.Collection("anticipateds"),
		versions:     db.Collection("uploadversions"),
		cb:           cb,
		cfg:          cfg,
		logger:       logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	logger.Info("mongo store connected", zap.String("database", database))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.versions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "versionNumber", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("kind_version_unique"),
	})
	if err != nil {
		return fmt.Errorf("create version index: %w", err)
	}
	for _, coll := range []*mongo.Collection{s.actuals, s.anticipateds} {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "versionId", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("create versionId index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Name() string { return "mongo" }

func (s *Store) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Mongo.Ping")
	defer span.End()
	return domain.AsPersistence("mongo/ping", s.client.Ping(ctx, readpref.Primary()))
}

func (s *Store) guard(ctx context.Context, op string, fn func() error) error {
	err := resilience.Guard(ctx, s.cb, s.cfg, func() error {
		err := fn()
		if mongo.IsDuplicateKeyError(err) {
			return &domain.ErrDuplicate{Key: op}
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return resilience.Permanent(err)
		}
		return err
	})
	return domain.AsPersistence(op, err)
}

// --- Reference data ---

func (s *Store) ListCostCenters(ctx context.Context) ([]domain.CostCenter, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListCostCenters")
	defer span.End()

	var docs []costCenterDoc
	err := s.guard(ctx, "mongo/costcenters", func() error {
		cur, err := s.costCenters.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.CostCenter, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.CostCenter{CostCenter: d.CostCenter, CostCenterName: d.CostCenterName})
	}
	return out, nil
}

func (s *Store) ListAccountSpendTypes(ctx context.Context) ([]domain.AccountSpendType, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListAccountSpendTypes")
	defer span.End()

	var docs []accountDoc
	err := s.guard(ctx, "mongo/accountspendtypes", func() error {
		cur, err := s.accounts.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.AccountSpendType, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.AccountSpendType{
			MainAccount:     d.MainAccount,
			MainAccountName: d.MainAccountName,
			SpendType:       domain.SpendType(d.SpendType),
		})
	}
	return out, nil
}

func (s *Store) UpsertCostCenters(ctx context.Context, centers []domain.CostCenter) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpsertCostCenters")
	defer span.End()

	if len(centers) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(centers))
	for _, cc := range centers {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: cc.CostCenter}}).
			SetReplacement(costCenterDoc{CostCenter: cc.CostCenter, CostCenterName: cc.CostCenterName}).
			SetUpsert(true))
	}
	return s.guard(ctx, "mongo/costcenters", func() error {
		_, err := s.costCenters.BulkWrite(ctx, models)
		return err
	})
}

func (s *Store) UpsertAccountSpendTypes(ctx context.Context, accounts []domain.AccountSpendType) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpsertAccountSpendTypes")
	defer span.End()

	if len(accounts) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(accounts))
	for _, a := range accounts {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: a.MainAccount}}).
			SetReplacement(accountDoc{MainAccount: a.MainAccount, MainAccountName: a.MainAccountName, SpendType: string(a.SpendType)}).
			SetUpsert(true))
	}
	return s.guard(ctx, "mongo/accountspendtypes", func() error {
		_, err := s.accounts.BulkWrite(ctx, models)
		return err
	})
}

// --- Actuals ---

func (s *Store) ListActuals(ctx context.Context) ([]domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListActuals")
	defer span.End()

	var docs []actualDoc
	err := s.guard(ctx, "mongo/actuals", func() error {
		cur, err := s.actuals.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActualRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (s *Store) GetActual(ctx context.Context, id string) (*domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetActual")
	defer span.End()

	var doc actualDoc
	err := s.guard(ctx, "mongo/actuals", func() error {
		return s.actuals.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &domain.ErrNotFound{Resource: "actual record", ID: id}
	}
	if err != nil {
		return nil, err
	}
	rec := doc.toDomain()
	return &rec, nil
}

func (s *Store) CreateActual(ctx context.Context, rec *domain.ActualRecord) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateActual")
	defer span.End()

	return s.guard(ctx, "mongo/actuals", func() error {
		_, err := s.actuals.InsertOne(ctx, toActualDoc(*rec))
		return err
	})
}

func (s *Store) UpdateActual(ctx context.Context, rec *domain.ActualRecord) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateActual")
	defer span.End()

	var matched int64
	err := s.guard(ctx, "mongo/actuals", func() error {
		res, err := s.actuals.ReplaceOne(ctx, bson.D{{Key: "_id", Value: rec.ID}}, toActualDoc(*rec))
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched == 0 {
		return &domain.ErrNotFound{Resource: "actual record", ID: rec.ID}
	}
	return nil
}

func (s *Store) DeleteActual(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteActual")
	defer span.End()

	var deleted int64
	err := s.guard(ctx, "mongo/actuals", func() error {
		res, err := s.actuals.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return &domain.ErrNotFound{Resource: "actual record", ID: id}
	}
	return nil
}

func (s *Store) InsertActuals(ctx context.Context, recs []domain.ActualRecord) error {
	ctx, span := tracer.Start(ctx, "Mongo.InsertActuals")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(recs)))

	if len(recs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, toActualDoc(r))
	}
	return s.guard(ctx, "mongo/actuals", func() error {
		_, err := s.actuals.InsertMany(ctx, docs)
		return err
	})
}

func (s *Store) DeleteActualsByVersion(ctx context.Context, versionID string) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteActualsByVersion")
	defer span.End()

	return s.guard(ctx, "mongo/actuals", func() error {
		_, err := s.actuals.DeleteMany(ctx, bson.D{{Key: "versionId", Value: versionID}})
		return err
	})
}

func (s *Store) DeleteAllActuals(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteAllActuals")
	defer span.End()

	return s.guard(ctx, "mongo/actuals", func() error {
		_, err := s.actuals.DeleteMany(ctx, bson.D{})
		return err
	})
}

// --- Anticipateds ---

func (s *Store) ListAnticipateds(ctx context.Context) ([]domain.AnticipatedRecord, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListAnticipateds")
	defer span.End()

	var docs []anticipatedDoc
	err := s.guard(ctx, "mongo/anticipateds", func() error {
		cur, err := s.anticipateds.Find(ctx, bson.D{})
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnticipatedRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (s *Store) InsertAnticipateds(ctx context.Context, recs []domain.AnticipatedRecord) error {
	ctx, span := tracer.Start(ctx, "Mongo.InsertAnticipateds")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(recs)))

	if len(recs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, toAnticipatedDoc(r))
	}
	return s.guard(ctx, "mongo/anticipateds", func() error {
		_, err := s.anticipateds.InsertMany(ctx, docs)
		return err
	})
}

func (s *Store) DeleteAnticipatedsByVersion(ctx context.Context, versionID string) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteAnticipatedsByVersion")
	defer span.End()

	return s.guard(ctx, "mongo/anticipateds", func() error {
		_, err := s.anticipateds.DeleteMany(ctx, bson.D{{Key: "versionId", Value: versionID}})
		return err
	})
}

func (s *Store) DeleteAllAnticipateds(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteAllAnticipateds")
	defer span.End()

	return s.guard(ctx, "mongo/anticipateds", func() error {
		_, err := s.anticipateds.DeleteMany(ctx, bson.D{})
		return err
	})
}

// --- Versions ---

func (s *Store) LatestVersionNumber(ctx context.Context, kind domain.RecordKind) (int, error) {
	ctx, span := tracer.Start(ctx, "Mongo.LatestVersionNumber")
	defer span.End()

	var doc versionDoc
	err := s.guard(ctx, "mongo/uploadversions", func() error {
		opts := options.FindOne().
			SetSort(bson.D{{Key: "versionNumber", Value: -1}}).
			SetProjection(bson.D{{Key: "versionNumber", Value: 1}})
		return s.versions.FindOne(ctx, bson.D{{Key: "kind", Value: string(kind)}}, opts).Decode(&doc)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.VersionNumber, nil
}

// CreateVersion surfaces a taken (kind, versionNumber) as *domain.ErrDuplicate.
func (s *Store) CreateVersion(ctx context.Context, v *domain.UploadVersion) error {
	ctx, span := tracer.Start(ctx, "Mongo.CreateVersion")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(v.Kind)), attribute.Int("version", v.VersionNumber))

	key := fmt.Sprintf("%s version %d", v.Kind, v.VersionNumber)
	err := s.guard(ctx, "mongo/uploadversions", func() error {
		_, err := s.versions.InsertOne(ctx, toVersionDoc(*v))
		return err
	})
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		return &domain.ErrDuplicate{Key: key}
	}
	return err
}

func (s *Store) ListVersions(ctx context.Context, kind domain.RecordKind, withRows bool) ([]domain.UploadVersion, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListVersions")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "versionNumber", Value: 1}})
	if !withRows {
		opts.SetProjection(bson.D{{Key: "data", Value: 0}})
	}

	var docs []versionDoc
	err := s.guard(ctx, "mongo/uploadversions", func() error {
		cur, err := s.versions.Find(ctx, bson.D{{Key: "kind", Value: string(kind)}}, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.UploadVersion, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) GetVersion(ctx context.Context, kind domain.RecordKind, id string) (*domain.UploadVersion, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetVersion")
	defer span.End()

	var doc versionDoc
	err := s.guard(ctx, "mongo/uploadversions", func() error {
		return s.versions.FindOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "kind", Value: string(kind)}}).Decode(&doc)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &domain.ErrNotFound{Resource: "version", ID: id}
	}
	if err != nil {
		return nil, err
	}
	v := doc.toDomain()
	if v.Rows == nil {
		v.Rows = []domain.Row{}
	}
	return &v, nil
}

// UpdateVersionRow sets data.<index> in place; the array bound is part of
// the filter so an out-of-range index matches nothing.
func (s *Store) UpdateVersionRow(ctx context.Context, kind domain.RecordKind, id string, index int, row domain.Row) error {
	ctx, span := tracer.Start(ctx, "Mongo.UpdateVersionRow")
	defer span.End()

	if index < 0 {
		return &domain.ErrValidation{Field: "index", Message: "Invalid record index."}
	}
	path := fmt.Sprintf("data.%d", index)
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "kind", Value: string(kind)},
		{Key: path, Value: bson.D{{Key: "$exists", Value: true}}},
	}

	var matched int64
	err := s.guard(ctx, "mongo/uploadversions", func() error {
		res, err := s.versions.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{{Key: path, Value: bson.M(row.Clone())}}}})
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	if matched > 0 {
		return nil
	}
	if _, err := s.GetVersion(ctx, kind, id); err != nil {
		return err
	}
	return &domain.ErrValidation{Field: "index", Message: "Invalid record index."}
}

func (s *Store) DeleteVersion(ctx context.Context, kind domain.RecordKind, id string) error {
	ctx, span := tracer.Start(ctx, "Mongo.DeleteVersion")
	defer span.End()

	var deleted int64
	err := s.guard(ctx, "mongo/uploadversions", func() error {
		res, err := s.versions.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "kind", Value: string(kind)}})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return &domain.ErrNotFound{Resource: "version", ID: id}
	}
	return nil
}
