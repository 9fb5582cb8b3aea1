package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mzhurin/convo/internal/common"
	sc "github.com/mzhurin/convo/internal/server/config"
	"github.com/mzhurin/convo/internal/server/models"
	"github.com/mzhurin/convo/internal/server/repositories/repomanager"
)

// Seams for testing the AWS presign calls without a live endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ProfileService handles partial profile updates and avatar object storage.
// Avatars live in an S3-compatible bucket; clients upload and download them
// directly through short-lived presigned URLs.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

// ProfileUpdate names the fields a client may change. Nil means "leave as is".
type ProfileUpdate struct {
	Username  *string
	Email     *string
	AvatarKey *string
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *ProfileService {
	return &ProfileService{db: db, repomanager: m, config: cfg}
}

// UpdateProfile applies a partial update to the user addressed by unique.
func (s *ProfileService) UpdateProfile(ctx context.Context, unique string, update ProfileUpdate) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUnique(ctx, unique)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	if update.Username != nil {
		if *update.Username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", common.ErrorValidation)
		}
		user.Username = *update.Username
	}
	if update.Email != nil {
		if *update.Email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", common.ErrorValidation)
		}
		user.Email = *update.Email
	}
	if update.AvatarKey != nil {
		user.AvatarKey = *update.AvatarKey
	}

	if err := repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, fmt.Errorf("%w: username is taken", common.ErrorConflict)
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return user, nil
}

// randomAvatarKey spreads uploads across date-based prefixes.
func randomAvatarKey() string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ProfileService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// AvatarUploadURL returns a fresh storage key and a presigned PUT URL the
// client uploads the avatar to. The key is stored on the profile afterwards
// via UpdateProfile.
func (s *ProfileService) AvatarUploadURL(ctx context.Context) (string, string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := randomAvatarKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))

	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// AvatarViewURL returns a presigned GET URL for a stored avatar key.
func (s *ProfileService) AvatarViewURL(ctx context.Context, key string) (string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
