package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postfeed/internal/models"
)

// The document store keeps ids as ObjectIDs for posts so that sorting by
// _id follows insertion order; users keep their uuid as a string _id.

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Name         string    `bson:"name"`
	Status       string    `bson:"status"`
	Posts        []string  `bson:"posts"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d *userDocument) toModel() *models.User {
	posts := d.Posts
	if posts == nil {
		posts = []string{}
	}
	return &models.User{
		UserID:       d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		Status:       d.Status,
		Posts:        posts,
		CreatedAt:    d.CreatedAt,
	}
}

type postDocument struct {
	ID         primitive.ObjectID `bson:"_id"`
	AuthorID   string             `bson:"author_id"`
	AuthorName string             `bson:"author_name"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	ImageURL   string             `bson:"image_url"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

func (d *postDocument) toModel() models.Post {
	return models.Post{
		PostID:     d.ID.Hex(),
		AuthorID:   d.AuthorID,
		AuthorName: d.AuthorName,
		Title:      d.Title,
		Content:    d.Content,
		ImageURL:   d.ImageURL,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func NewMongoRepository(db *mongo.Database) *Repository {
	return &Repository{
		User: NewMongoUserRepository(db),
		Post: NewMongoPostRepository(db),
	}
}

type mongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection("users")}
}

func (r *mongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	if user.Status == "" {
		user.Status = models.DefaultStatus
	}
	if user.Posts == nil {
		user.Posts = []string{}
	}
	user.CreatedAt = time.Now().UTC()

	doc := userDocument{
		ID:           user.UserID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		Status:       user.Status,
		Posts:        user.Posts,
		CreatedAt:    user.CreatedAt,
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *mongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) UpdateStatus(ctx context.Context, userID, status string) error {
	result, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("ошибка при обновлении статуса: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

// mongoPostRepository writes the post and the owner's reference list with
// two separate operations; there is no multi-document transaction.
type mongoPostRepository struct {
	posts *mongo.Collection
	users *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return &mongoPostRepository{
		posts: db.Collection("posts"),
		users: db.Collection("users"),
	}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	oid := primitive.NewObjectID()
	now := time.Now().UTC()

	post.PostID = oid.Hex()
	post.CreatedAt = now
	post.UpdatedAt = now

	doc := postDocument{
		ID:         oid,
		AuthorID:   post.AuthorID,
		AuthorName: post.AuthorName,
		Title:      post.Title,
		Content:    post.Content,
		ImageURL:   post.ImageURL,
		CreatedAt:  post.CreatedAt,
		UpdatedAt:  post.UpdatedAt,
	}

	if _, err := r.posts.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("ошибка при создании поста: %w", err)
	}

	result, err := r.users.UpdateOne(ctx,
		bson.M{"_id": post.AuthorID},
		bson.M{"$push": bson.M{"posts": post.PostID}})
	if err == nil && result.MatchedCount == 0 {
		err = ErrUserNotFound
	}
	if err != nil {
		// undo the insert so the post never exists without an owner
		if _, undoErr := r.posts.DeleteOne(ctx, bson.M{"_id": oid}); undoErr != nil {
			return fmt.Errorf("ошибка при привязке поста к автору: %w; пост %s не удалён: %w",
				err, post.PostID, undoErr)
		}
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("ошибка при привязке поста к автору: %w", err)
	}

	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, ErrPostNotFound
	}

	var doc postDocument
	if err := r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("ошибка при получении поста: %w", err)
	}

	post := doc.toModel()
	return &post, nil
}

func (r *mongoPostRepository) Update(ctx context.Context, post *models.Post) error {
	oid, err := primitive.ObjectIDFromHex(post.PostID)
	if err != nil {
		return ErrPostNotFound
	}

	post.UpdatedAt = time.Now().UTC()

	result, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"title":      post.Title,
			"content":    post.Content,
			"image_url":  post.ImageURL,
			"updated_at": post.UpdatedAt,
		}})
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поста: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, postID, authorID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return ErrPostNotFound
	}

	result, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrPostNotFound
	}

	_, err = r.users.UpdateOne(ctx,
		bson.M{"_id": authorID},
		bson.M{"$pull": bson.M{"posts": postID}})
	if err != nil {
		return fmt.Errorf("ошибка при отвязке поста от автора: %w", err)
	}

	return nil
}

// ReadPage issues the count and the range query separately. Concurrent
// writes between the two can skew totalItems against the slice by the
// number of posts written in that window.
func (r *mongoPostRepository) ReadPage(ctx context.Context, offset, limit int) ([]models.Post, int, error) {
	total, err := r.posts.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при подсчёте постов: %w", err)
	}

	posts := []models.Post{}
	if int64(offset) >= total {
		return posts, int(total), nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.posts.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при получении постов: %w", err)
	}
	defer cur.Close(ctx)

	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("ошибка при чтении постов: %w", err)
	}

	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}

	return posts, int(total), nil
}

func (r *mongoPostRepository) CountByImage(ctx context.Context, imageURL string) (int, error) {
	count, err := r.posts.CountDocuments(ctx, bson.M{"image_url": imageURL})
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте ссылок на изображение: %w", err)
	}

	return int(count), nil
}
