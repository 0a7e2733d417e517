package server

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sort"

	"frameselect/pkg/api"

	"github.com/bep/imagemeta"
	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// dupThreshold is the maximum Hamming distance between two difference-hash
// values below which images land in the same duplicate group.
const dupThreshold = 10

// Analyzer produces the scored results for an upload. Scores are
// deterministic pseudo-scores derived from file content, so repeated runs
// over the same batch agree; this is a stand-in for the real scoring
// pipeline, not computer vision. Duplicate grouping is real: perceptual
// difference hashing over decodable images.
type Analyzer struct {
	storage *Storage
}

func NewAnalyzer(storage *Storage) *Analyzer {
	return &Analyzer{storage: storage}
}

type imageInfo struct {
	filename string
	scores   api.ScoreBreakdown
	hash     *goimagehash.ImageHash
	byteSum  uint64
	debug    map[string]any
}

// Run analyzes an upload, reporting fractional progress through cb, and
// stores the results JSON for later retrieval. Phases mirror the upload
// pipeline: hashing 0-0.3, scoring 0.3-0.9, report assembly to 1.0.
func (a *Analyzer) Run(uploadID string, cb func(float64)) (*api.ResultsResponse, error) {
	files, err := a.storage.ImageFiles(uploadID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found for upload")
	}

	infos := make([]*imageInfo, 0, len(files))
	for i, filename := range files {
		info, err := a.inspect(uploadID, filename)
		if err != nil {
			slog.Warn("skipping unreadable file", "upload_id", uploadID, "file", filename, "error", err)
			continue
		}
		infos = append(infos, info)
		cb(float64(i+1) / float64(len(files)) * 0.3)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("no readable images in upload")
	}

	groups := groupDuplicates(infos)

	results := make([]api.ImageScore, 0, len(infos))
	for i, info := range infos {
		results = append(results, scoreImage(info, groups))
		cb(0.3 + float64(i+1)/float64(len(infos))*0.6)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	report := buildReport(groups, len(infos))
	response := &api.ResultsResponse{
		UploadId: uploadID,
		Images:   results,
		Metadata: &api.ResultsMetadata{
			TotalImages:     len(results),
			ScoringMethod:   "deterministic_stub_with_duplicates",
			CalibrationNote: "stub scores; for development only",
		},
		DuplicateReport: report,
	}

	if err := a.storage.SaveResults(uploadID, response); err != nil {
		return nil, err
	}
	cb(1.0)
	return response, nil
}

func (a *Analyzer) inspect(uploadID, filename string) (*imageInfo, error) {
	data, err := os.ReadFile(a.storage.ImagePath(uploadID, filename))
	if err != nil {
		return nil, err
	}

	sum := fnv.New64a()
	sum.Write(data) //nolint:errcheck

	info := &imageInfo{
		filename: filename,
		scores:   pseudoScores(sum.Sum64()),
		byteSum:  sum.Sum64(),
		debug:    map[string]any{},
	}

	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		if hash, err := goimagehash.DifferenceHash(img); err == nil {
			info.hash = hash
		}
	}

	if captured := captureTime(data); captured != "" {
		info.debug["capture_time"] = captured
	}

	return info, nil
}

// pseudoScores spreads the content hash over the four quality axes. The
// constants are arbitrary mixers; only determinism matters.
func pseudoScores(seed uint64) api.ScoreBreakdown {
	frac := func(shift uint) float64 {
		return float64((seed>>shift)&0x3ff) / 1023.0
	}
	return api.ScoreBreakdown{
		Sharpness:   frac(0),
		Composition: frac(10),
		Emotion:     frac(20),
		Action:      frac(30),
	}
}

// captureTime pulls the EXIF DateTimeOriginal from raw image bytes, if
// present. Never fails; unreadable metadata is just absent.
func captureTime(data []byte) string {
	var captured string
	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Tag == "DateTimeOriginal"
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if s, ok := ti.Value.(string); ok {
				captured = s
			}
			return nil
		},
	})
	if err != nil {
		return ""
	}
	return captured
}

// groupDuplicates clusters the batch into duplicate groups: perceptual
// hash distance below dupThreshold, or identical byte hashes when an image
// could not be decoded. Returns the group index per filename; images
// without a group are unique.
func groupDuplicates(infos []*imageInfo) map[string]int {
	parent := make([]int, len(infos))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) { parent[find(i)] = find(j) }

	for i := 0; i < len(infos); i++ {
		for j := i + 1; j < len(infos); j++ {
			a, b := infos[i], infos[j]
			if a.hash != nil && b.hash != nil {
				if dist, err := a.hash.Distance(b.hash); err == nil && dist < dupThreshold {
					union(i, j)
				}
			} else if a.byteSum == b.byteSum {
				union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	for i := range infos {
		root := find(i)
		members[root] = append(members[root], i)
	}

	groups := make(map[string]int)
	groupID := 0
	for i := range infos {
		root := find(i)
		if root != i || len(members[root]) < 2 {
			continue
		}
		groupID++
		for _, m := range members[root] {
			groups[infos[m].filename] = groupID
		}
	}
	return groups
}

func scoreImage(info *imageInfo, groups map[string]int) api.ImageScore {
	scores := info.scores
	tags := []string{}

	if scores.Sharpness >= 0.7 {
		tags = append(tags, "sharp")
	} else if scores.Sharpness >= 0.5 {
		tags = append(tags, "high_bokeh")
	}
	if scores.Composition < 0.3 {
		tags = append(tags, "B_roll")
	}
	if scores.Action >= 0.7 {
		tags = append(tags, "high_action")
	}
	if scores.Emotion >= 0.7 {
		tags = append(tags, "high_emotion")
	}

	if groupID, ok := groups[info.filename]; ok {
		scores.Duplicate = 1.0
		tags = append(tags, fmt.Sprintf("duplicate_group_%d", groupID), dupRole(info.filename, groups, groupID))
	} else {
		tags = append(tags, "unique")
	}

	final := 0.35*scores.Sharpness + 0.30*scores.Composition + 0.20*scores.Emotion + 0.15*scores.Action

	return api.ImageScore{
		ImageId:    info.filename,
		FinalScore: final,
		Tags:       tags,
		Scores:     scores,
		DebugInfo:  info.debug,
	}
}

// dupRole labels the lexically-first member of a group as primary; group
// member order in the report follows the same rule.
func dupRole(filename string, groups map[string]int, groupID int) string {
	for other, id := range groups {
		if id == groupID && other < filename {
			return "duplicate_secondary"
		}
	}
	return "duplicate_primary"
}

func buildReport(groups map[string]int, total int) *api.DuplicateReport {
	if len(groups) == 0 {
		return nil
	}

	byGroup := make(map[int][]string)
	for filename, id := range groups {
		byGroup[id] = append(byGroup[id], filename)
	}

	ids := make([]int, 0, len(byGroup))
	for id := range byGroup {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	report := &api.DuplicateReport{}
	duplicates := 0
	for _, id := range ids {
		images := byGroup[id]
		sort.Strings(images) // first = recommended keep
		duplicates += len(images) - 1
		report.Groups = append(report.Groups, api.DuplicateGroup{
			GroupId:         id,
			Images:          images,
			Count:           len(images),
			RecommendedKeep: images[0],
		})
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("keep %s, drop %d near-identical frames", images[0], len(images)-1))
	}
	report.Summary = api.DuplicateSummary{
		TotalDuplicates: duplicates,
		UniqueImages:    total - len(groups),
		HashGroups:      len(ids),
	}
	return report
}
