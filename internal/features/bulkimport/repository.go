package bulkimport

import (
	"context"
	"time"

	common_models "github.com/samSKIF/ThrivioHR-sub000/internal/common/models"
	"github.com/samSKIF/ThrivioHR-sub000/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ImportAuditRepository interface {
	Create(ctx context.Context, audit *common_models.ImportAudit) error
	Get(ctx context.Context, id string) (*common_models.ImportAudit, error)
	FindByOrg(ctx context.Context, orgID string, limit int64) ([]common_models.ImportAudit, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ImportAuditRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewImportAuditRepository(mongodb *database.MongodbDB) ImportAuditRepository {
	return &ImportAuditRepositoryImpl{
		Collection: mongodb.DB.Collection("import_audits"),
	}
}

func (r *ImportAuditRepositoryImpl) Create(ctx context.Context, audit *common_models.ImportAudit) error {
	res, err := r.Collection.InsertOne(ctx, audit)
	if err != nil {
		return err
	}
	audit.ID, _ = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ImportAuditRepositoryImpl) Get(ctx context.Context, id string) (*common_models.ImportAudit, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var audit common_models.ImportAudit
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&audit)
	if err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *ImportAuditRepositoryImpl) FindByOrg(ctx context.Context, orgID string, limit int64) ([]common_models.ImportAudit, error) {
	opts := options.Find().
		SetSort(bson.M{"finished_at": -1}).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var audits []common_models.ImportAudit
	if err := cursor.All(ctx, &audits); err != nil {
		return nil, err
	}
	return audits, nil
}

func (r *ImportAuditRepositoryImpl) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.Collection.DeleteMany(ctx, bson.M{"finished_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
