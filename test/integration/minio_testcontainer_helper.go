package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sandeepkv93/event-credential-service/internal/service"
)

const (
	minioImage     = "docker.io/minio/minio:RELEASE.2025-09-07T16-13-09Z"
	minioRootUser  = "minioadmin"
	minioRootPass  = "minioadmin"
	minioPort      = "9000/tcp"
	minioReadyWait = 20 * time.Second
)

// archiveBucket is a throwaway MinIO container plus the document store under
// test and a raw client for asserting on what landed in the bucket.
type archiveBucket struct {
	name   string
	store  *service.MinIODocumentStore
	client *minio.Client
}

func newArchiveBucket(t *testing.T) *archiveBucket {
	t.Helper()
	if testing.Short() {
		t.Skip("minio container tests need docker")
	}
	ctx := context.Background()

	image := os.Getenv("MINIO_TEST_IMAGE")
	if image == "" {
		image = minioImage
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			Env:          map[string]string{"MINIO_ROOT_USER": minioRootUser, "MINIO_ROOT_PASSWORD": minioRootPass},
			ExposedPorts: []string{minioPort},
			Cmd:          []string{"server", "/data", "--address", ":9000"},
			WaitingFor:   wait.ForListeningPort(minioPort).WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("minio host: %v", err)
	}
	port, err := container.MappedPort(ctx, minioPort)
	if err != nil {
		t.Fatalf("minio port: %v", err)
	}
	endpoint := net.JoinHostPort(host, port.Port())

	client, err := minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(minioRootUser, minioRootPass, "")})
	if err != nil {
		t.Fatalf("minio client: %v", err)
	}
	awaitMinIO(t, client)

	name := fmt.Sprintf("batch-documents-it-%d", time.Now().UnixNano())
	store, err := service.NewMinIODocumentStore(endpoint, minioRootUser, minioRootPass, name, false)
	if err != nil {
		t.Fatalf("minio document store: %v", err)
	}
	return &archiveBucket{name: name, store: store, client: client}
}

func awaitMinIO(t *testing.T, client *minio.Client) {
	t.Helper()
	deadline := time.Now().Add(minioReadyWait)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := client.ListBuckets(ctx)
		cancel()
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("minio not ready after %s: %v", minioReadyWait, err)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// stat returns the object info, or ok=false when the key is absent.
func (b *archiveBucket) stat(t *testing.T, key string) (minio.ObjectInfo, bool) {
	t.Helper()
	info, err := b.client.StatObject(context.Background(), b.name, key, minio.StatObjectOptions{})
	if err == nil {
		return info, true
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket") {
		return minio.ObjectInfo{}, false
	}
	t.Fatalf("stat %q: %v", key, err)
	return minio.ObjectInfo{}, false
}
