package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"crewpilot/internal/crew"
	"crewpilot/internal/models"
	"crewpilot/pkg/logger"

	"github.com/nao1215/markdown"
)

// summaryFile 是每次运行都会生成的总览报告文件名。
// 若某个任务通过 output_file 声明了同名文件，则以任务输出为准。
const summaryFile = "report.md"

// Writer 把一次 crew 运行的结果渲染为 markdown 文件。
// 每次运行的产物写入 <outputDir>/<runID>/ 目录下:
// 任务声明的 output_file (如 decision.md) 各自成文，
// 另外生成一份 report.md 作为运行总览。
type Writer struct {
	outputDir string
	log       *logger.Logger
}

// NewWriter 创建一个 Writer。
func NewWriter(outputDir string, log *logger.Logger) *Writer {
	return &Writer{outputDir: outputDir, log: log}
}

// WriteRun 渲染并写出一次运行的全部 markdown 文件，返回写出的文件路径。
func (w *Writer) WriteRun(spec *crew.CrewSpec, record *models.RunRecord) ([]string, error) {
	runDir := filepath.Join(w.outputDir, record.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建报告目录 %s 失败: %w", runDir, err)
	}

	var paths []string
	summaryClaimed := false

	for _, result := range record.Results {
		task, ok := spec.Tasks[result.TaskName]
		if !ok || task.OutputFile == "" {
			continue
		}
		if task.OutputFile == summaryFile {
			summaryClaimed = true
		}

		path := filepath.Join(runDir, filepath.Base(task.OutputFile))
		if err := w.writeTaskFile(path, result); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if !summaryClaimed {
		path := filepath.Join(runDir, summaryFile)
		if err := w.writeSummary(path, spec, record); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	w.log.WithPayload(map[string]interface{}{
		"run_id": record.ID,
		"files":  len(paths),
	}).Info("运行报告已生成")
	return paths, nil
}

// writeTaskFile 把单个任务的输出渲染为独立的 markdown 文件。
func (w *Writer) writeTaskFile(path string, result models.TaskResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报告文件 %s 失败: %w", path, err)
	}
	defer file.Close()

	md := markdown.NewMarkdown(file)
	md.H1(titleFromTaskName(result.TaskName))
	md.PlainText("")
	md.PlainTextf("*Agent: %s*", result.Agent)
	md.PlainText("")

	if result.ValidationError != "" {
		md.Warningf("模型输出未通过 schema 校验，以下为类型回退结果: %s", result.ValidationError)
		md.PlainText("")
	}

	writeOutputFields(md, result.Output)

	if result.RawOutput != "" {
		md.PlainText("")
		md.Details("Raw model output", "\n```\n"+result.RawOutput+"\n```\n")
	}

	return md.Build()
}

// writeSummary 渲染整次运行的总览报告。
func (w *Writer) writeSummary(path string, spec *crew.CrewSpec, record *models.RunRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报告文件 %s 失败: %w", path, err)
	}
	defer file.Close()

	md := markdown.NewMarkdown(file)
	md.H1("Crew Run Report: " + spec.Name)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + record.ID + "`"},
			{"Crew", spec.Name},
			{"Process", string(spec.Process)},
			{"Status", statusText(record)},
			{"Submitted", record.SubmittedAt.Format("2006-01-02 15:04:05 MST")},
			{"Completed", record.CompletedAt.Format("2006-01-02 15:04:05 MST")},
			{"Tasks", strconv.Itoa(len(record.Results))},
		},
	})
	md.PlainText("")

	if len(record.Inputs) > 0 {
		md.H2("Inputs")
		md.PlainText("")
		inputs, _ := json.MarshalIndent(record.Inputs, "", "  ")
		md.CodeBlocks(markdown.SyntaxHighlightJSON, string(inputs))
		md.PlainText("")
	}

	for _, result := range record.Results {
		md.H2(titleFromTaskName(result.TaskName))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows: [][]string{
				{"Agent", result.Agent},
				{"Attempts", strconv.Itoa(result.Attempts)},
				{"Duration", result.Duration.String()},
				{"Validated", validatedText(result)},
			},
		})
		md.PlainText("")
		writeOutputFields(md, result.Output)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by crewpilot*")
	return md.Build()
}

// writeOutputFields 把结构化输出按字段渲染为小节。
// 列表字段渲染为 bullet list，其余字段按文本渲染。
func writeOutputFields(md *markdown.Markdown, output map[string]interface{}) {
	fields := make([]string, 0, len(output))
	for field := range output {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		md.H3(titleFromTaskName(field))
		md.PlainText("")
		switch value := output[field].(type) {
		case []interface{}:
			items := make([]string, 0, len(value))
			for _, item := range value {
				items = append(items, fmt.Sprintf("%v", item))
			}
			if len(items) == 0 {
				md.PlainText("*(empty)*")
			} else {
				md.BulletList(items...)
			}
		case string:
			if value == "" {
				md.PlainText("*(empty)*")
			} else {
				md.PlainText(value)
			}
		default:
			md.PlainText(fmt.Sprintf("%v", value))
		}
		md.PlainText("")
	}
}

// titleFromTaskName 把 snake_case 的任务或字段名转换为标题。
func titleFromTaskName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	if len(words) == 0 {
		return name
	}
	return strings.Join(words, " ")
}

func statusText(record *models.RunRecord) string {
	switch record.Status {
	case models.RunStatusSuccess:
		return "✅ Success"
	case models.RunStatusFailed:
		return "❌ Failed - " + record.Error
	default:
		return string(record.Status)
	}
}

func validatedText(result models.TaskResult) string {
	if result.ValidationError != "" {
		return "⚠️ fallback: " + result.ValidationError
	}
	if result.Fallback {
		return "⚠️ fallback"
	}
	return "✅"
}
