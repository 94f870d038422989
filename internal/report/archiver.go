package report

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"crewpilot/pkg/logger"

	"github.com/minio/minio-go/v7"
)

// Archiver 把生成的 markdown 报告归档到 MinIO 对象存储，
// 对象键为 runs/<runID>/<文件名>。
type Archiver struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewArchiver 创建一个 Archiver。
func NewArchiver(client *minio.Client, bucket string, log *logger.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, log: log}
}

// Archive 上传一次运行的全部报告文件。
// 单个文件上传失败会中断归档并返回错误，已上传的文件保留。
func (a *Archiver) Archive(ctx context.Context, runID string, paths []string) error {
	for _, localPath := range paths {
		objectName := path.Join("runs", runID, filepath.Base(localPath))
		info, err := a.client.FPutObject(ctx, a.bucket, objectName, localPath, minio.PutObjectOptions{
			ContentType: "text/markdown",
		})
		if err != nil {
			return fmt.Errorf("归档 %s 到 MinIO 失败: %w", objectName, err)
		}
		a.log.WithPayload(map[string]interface{}{
			"object": objectName,
			"size":   info.Size,
		}).Debug("报告文件已归档")
	}
	return nil
}
