package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewS3SinkRequiresBucket(t *testing.T) {
	sink, err := NewS3Sink(context.Background(), "", "eu-central-1")

	assert.Error(t, err)
	assert.Nil(t, sink)
	assert.Contains(t, err.Error(), "bucket")
}

func TestS3SinkImplementsArtifactSink(t *testing.T) {
	var _ ArtifactSink = (*S3Sink)(nil)
}
