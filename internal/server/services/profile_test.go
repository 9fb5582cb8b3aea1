package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhurin/convo/internal/common"
)

func strptr(s string) *string { return &s }

func TestUpdateProfile_Partial(t *testing.T) {
	rm := newFakeRepoManager()
	seedUser(t, rm, "u1", "alice", "alice@example.com")

	svc := NewProfileService(nil, rm, testConfig())

	updated, err := svc.UpdateProfile(context.Background(), "u1", ProfileUpdate{
		Email: strptr("new@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "new@example.com", updated.Email)

	updated, err = svc.UpdateProfile(context.Background(), "u1", ProfileUpdate{
		AvatarKey: strptr("avatars/2026/1/1/key"),
	})
	require.NoError(t, err)
	assert.Equal(t, "avatars/2026/1/1/key", updated.AvatarKey)
	assert.Equal(t, "new@example.com", updated.Email)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	rm := newFakeRepoManager()
	svc := NewProfileService(nil, rm, testConfig())

	_, err := svc.UpdateProfile(context.Background(), "ghost", ProfileUpdate{Email: strptr("x@example.com")})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateProfile_EmptyFieldRejected(t *testing.T) {
	rm := newFakeRepoManager()
	seedUser(t, rm, "u1", "alice", "alice@example.com")

	svc := NewProfileService(nil, rm, testConfig())

	_, err := svc.UpdateProfile(context.Background(), "u1", ProfileUpdate{Username: strptr("")})
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.UpdateProfile(context.Background(), "u1", ProfileUpdate{Email: strptr("")})
	require.ErrorIs(t, err, common.ErrorValidation)
}

// stubPresign replaces the AWS seams for the duration of a test.
func stubPresign(t *testing.T, putURL, getURL string, presignErr error) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewClient := newS3ClientFromConfig
	origNewPresign := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewClient
		newS3PresignClient = origNewPresign
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return nil
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return nil
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: putURL}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: getURL}, nil
	}
}

func TestAvatarUploadURL(t *testing.T) {
	stubPresign(t, "http://signed-put", "http://signed-get", nil)

	svc := NewProfileService(nil, newFakeRepoManager(), testConfig())

	key, url, err := svc.AvatarUploadURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://signed-put", url)
	assert.True(t, strings.HasPrefix(key, "avatars/"), "key %q must live under avatars/", key)
}

func TestAvatarViewURL(t *testing.T) {
	stubPresign(t, "http://signed-put", "http://signed-get", nil)

	svc := NewProfileService(nil, newFakeRepoManager(), testConfig())

	url, err := svc.AvatarViewURL(context.Background(), "avatars/2026/1/1/key")
	require.NoError(t, err)
	assert.Equal(t, "http://signed-get", url)
}

func TestAvatarUploadURL_PresignError(t *testing.T) {
	wantErr := errors.New("presign failed")
	stubPresign(t, "", "", wantErr)

	svc := NewProfileService(nil, newFakeRepoManager(), testConfig())

	_, _, err := svc.AvatarUploadURL(context.Background())
	require.ErrorIs(t, err, wantErr)
}
