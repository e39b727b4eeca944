package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/pkg/logger"
)

// CatalogPolicyArtifactFirst 产物优先：磁盘文件是对外契约，目录入库失败只记录日志，
// 由 CatalogReconciler 负责最终一致
const CatalogPolicyArtifactFirst = "artifact-first"

const (
	representativeStem = "vocals"
	originalPrefix     = "original"
)

// stemFile 输出目录中的一个分离层文件
type stemFile struct {
	name     string
	filename string
}

// trackBuilder 分析代表性分离层并组装曲目实体，流水线和对账共用
type trackBuilder struct {
	analyzer port.Analyzer
}

func (b trackBuilder) build(ctx context.Context, name, dir string, stemCount int, files []stemFile, originalFilename string) *entity.TrackEntity {
	track := entity.NewTrackEntity(name, stemCount)
	track.SetOriginalFilename(originalFilename)
	if len(files) == 0 {
		return track
	}

	rep := files[0]
	for _, f := range files {
		if f.name == representativeStem {
			rep = f
			break
		}
	}

	repPath := filepath.Join(dir, rep.filename)
	bpm := b.measure(ctx, "tempo", repPath, b.analyzer.Tempo)
	repDuration := b.measure(ctx, "duration", repPath, b.analyzer.Duration)
	track.SetAnalysis(bpm, repDuration)

	for _, f := range files {
		d := repDuration
		if f.filename != rep.filename {
			d = b.measure(ctx, "duration", filepath.Join(dir, f.filename), b.analyzer.Duration)
		}
		track.AddStem(entity.NewStemEntity(f.name, f.filename, d))
	}
	return track
}

// measure 分析失败时返回 nil，曲目照常入库
func (b trackBuilder) measure(ctx context.Context, what, path string, fn func(context.Context, string) (float64, error)) *float64 {
	if b.analyzer == nil {
		return nil
	}
	v, err := fn(ctx, path)
	if err != nil {
		logger.Warnf("audio analysis failed what=%s path=%s err=%v", what, path, err)
		return nil
	}
	return &v
}

// listStemFiles 列出目录中非 original 的 wav 文件，按文件名排序
func listStemFiles(dir string) ([]stemFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []stemFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".wav") {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if base == originalPrefix {
			continue
		}
		files = append(files, stemFile{name: base, filename: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].filename < files[j].filename })
	return files, nil
}

// findOriginal 返回目录中 original.* 的文件名，不存在时为空
func findOriginal(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, originalPrefix+".") {
			return name
		}
	}
	return ""
}
