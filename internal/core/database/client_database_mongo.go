package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
	"github.com/markdave123-py/ivyready/internal/models"
)

const conversationsCollection = "conversations"

// threadDocument is the stored shape of a thread. hasTaskPage exists because a
// partial index filter cannot express "field is missing".
type threadDocument struct {
	models.Thread `bson:",inline"`
	HasTaskPage   bool `bson:"hasTaskPage"`
}

// MongoClient stores each thread as one document with an embedded messages array.
type MongoClient struct {
	client  *mongo.Client
	threads *mongo.Collection
}

func NewMongoClient(ctx context.Context, cfg *config.Config) (*MongoClient, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	c := &MongoClient{
		client:  client,
		threads: client.Database(cfg.MongoDatabase).Collection(conversationsCollection),
	}
	if err := c.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("database", cfg.MongoDatabase).Msg("mongo conversation store ready")
	return c, nil
}

func (c *MongoClient) ensureIndexes(ctx context.Context) error {
	_, err := c.threads.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "selectionId", Value: 1}, {Key: "taskTitle", Value: 1}, {Key: "taskPage", Value: 1}},
			Options: options.Index().
				SetName("selection_task_page_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "taskPage", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys: bson.D{{Key: "selectionId", Value: 1}, {Key: "taskTitle", Value: 1}},
			Options: options.Index().
				SetName("selection_task_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "hasTaskPage", Value: false}}),
		},
		{
			Keys:    bson.D{{Key: "studentIvyServiceId", Value: 1}},
			Options: options.Index().SetName("student_ivy_service"),
		},
	})
	if err != nil {
		return errors.Wrap(err, "create conversation indexes")
	}
	return nil
}

func (c *MongoClient) FindThread(ctx context.Context, key models.TaskKey) (*models.Thread, error) {
	key = key.Normalized()
	filter := bson.D{{Key: "selectionId", Value: key.SelectionID}, {Key: "taskTitle", Value: key.TaskTitle}}
	if key.HasPage() {
		filter = append(filter, bson.E{Key: "taskPage", Value: key.TaskPage})
	} else {
		filter = append(filter, bson.E{Key: "hasTaskPage", Value: false})
	}

	var doc threadDocument
	err := c.threads.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find thread")
	}
	return doc.toThread(), nil
}

func (c *MongoClient) CreateThread(ctx context.Context, thread *models.Thread) error {
	if thread == nil {
		return errors.New("nil thread")
	}
	thread.TaskPage = models.NormalizeTaskPage(thread.TaskPage)

	doc := threadDocument{Thread: *thread, HasTaskPage: thread.TaskPage != ""}
	if doc.Messages == nil {
		doc.Messages = []models.Message{}
	}

	_, err := c.threads.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(core.ErrThreadExists, err.Error())
	}
	if err != nil {
		return errors.Wrap(err, "insert thread")
	}
	return nil
}

func (c *MongoClient) AppendMessage(ctx context.Context, threadID string, msg models.Message) (*models.Thread, error) {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "messages", Value: msg}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc threadDocument
	err := c.threads.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: threadID}}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(core.ErrThreadNotFound, "thread %s", threadID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	return doc.toThread(), nil
}

func (c *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (d *threadDocument) toThread() *models.Thread {
	t := d.Thread
	if t.Messages == nil {
		t.Messages = []models.Message{}
	}
	return &t
}

var _ core.ConversationStore = (*MongoClient)(nil)
