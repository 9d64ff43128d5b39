// cmd/novelscript/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Corphon/NovelScriptMCP/internal/app"
	"github.com/Corphon/NovelScriptMCP/internal/config"
	"github.com/Corphon/NovelScriptMCP/internal/di"
	"github.com/Corphon/NovelScriptMCP/internal/services"
	"github.com/Corphon/NovelScriptMCP/internal/storage"
	"github.com/google/uuid"
)

// 自动探测时跳过的常见非小说文件
var excludedNames = map[string]bool{
	"requirements.txt": true,
	"readme.txt":       true,
	"license.txt":      true,
}

func main() {
	// 1. 配置系统
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := config.InitConfig(baseConfig.WorkshopDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}

	// 2. 服务初始化
	if err := app.InitServices(); err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}

	container := di.GetContainer()
	extraction := container.Get("extraction").(*services.ExtractionService)
	pipeline := container.Get("pipeline").(*services.PipelineService)
	progress := container.Get("progress").(*services.ProgressService)

	// 3. 前置检查，问题在发起任何LLM调用之前暴露
	cfg := config.GetCurrentConfig()
	if cfg.LLMConfig["api_key"] == "" {
		log.Fatalf("未配置API密钥，请设置 DEEPSEEK_API_KEY 环境变量或编辑 %s/config.json",
			cfg.WorkshopDir)
	}
	if !extraction.TemplatesLoaded() {
		log.Fatalf("提示词模板未加载，请确认当前目录存在 %s 和 %s 文件",
			services.SegmentPromptFile, services.ChapterPromptFile)
	}

	// 4. 确定输入文件
	inputPath := resolveInputPath()
	content, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("读取文本文件失败 %s: %v", inputPath, err)
	}

	projectName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	fmt.Printf("开始转换: %s\n", projectName)

	// 5. 进度输出
	tracker := progress.CreateTracker(uuid.New().String())
	updates := tracker.Subscribe()
	go func() {
		for update := range updates {
			fmt.Printf("[%3d%%] %s\n", update.Progress, update.Message)
		}
	}()

	// Ctrl+C 取消转换
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 6. 执行转换
	result, err := pipeline.ConvertText(ctx, projectName, string(content), tracker)
	if err != nil {
		tracker.Fail(err.Error())
		log.Fatalf("转换失败: %v", err)
	}
	tracker.Complete("转换完成")

	// 7. 汇总输出
	combined := result.Combined()
	fmt.Printf("转换完成: %d 个章节, %d 条脚本记录\n",
		len(result.ChapterTitles()), len(combined))
	fmt.Printf("结果文件: %s\n",
		filepath.Join(cfg.WorkshopDir, storage.SafeFileName(projectName), "combined.json"))
}

// resolveInputPath 按命令行参数、目录探测、交互输入的顺序确定输入文件
func resolveInputPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}

	candidates := detectTextFiles(".")
	if len(candidates) == 1 {
		fmt.Printf("检测到文本文件: %s\n", candidates[0])
		return candidates[0]
	}

	if len(candidates) > 1 {
		fmt.Println("检测到多个文本文件:")
		for i, name := range candidates {
			fmt.Printf("  %d. %s\n", i+1, name)
		}
	}

	fmt.Print("请输入文本文件路径: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("读取输入失败: %v", err)
	}

	path := strings.TrimSpace(line)
	if path == "" {
		log.Fatal("未指定文本文件")
	}
	return path
}

// detectTextFiles 列出目录下可能是小说的txt文件
func detectTextFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), ".txt") {
			continue
		}
		if excludedNames[strings.ToLower(name)] {
			continue
		}
		found = append(found, name)
	}
	return found
}
