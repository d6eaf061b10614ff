package cache

import "github.com/doeshing/askai-go/internal/domain"

// commonPrompts are frequent requests answered without a provider round-trip.
var commonPrompts = []struct {
	prompt  string
	command string
}{
	{"현재 시간", "date"},
	{"현재 시간 출력", "date"},
	{"git 상태", "git status"},
	{"git 상태 보기", "git status"},
	{"파일 목록", "ls -la"},
	{"파일 목록 보기", "ls -la"},
	{"현재 디렉토리", "pwd"},
	{"git pull", "git pull origin main"},
	{"git push", "git push origin main"},
	{"도커 컨테이너 목록", "docker ps"},
	{"npm 설치", "npm install"},
	{"cargo 빌드", "cargo build"},
	{"테스트 실행", "cargo test"},
	{"show current time", "date"},
	{"list files", "ls -la"},
	{"current directory", "pwd"},
	{"git status", "git status"},
}

// CommonPrompts expands the curated list for each provider.
func CommonPrompts(providers ...string) []domain.PrewarmEntry {
	entries := make([]domain.PrewarmEntry, 0, len(commonPrompts)*len(providers))
	for _, provider := range providers {
		for _, p := range commonPrompts {
			entries = append(entries, domain.PrewarmEntry{
				Prompt:   p.prompt,
				Provider: provider,
				Command:  p.command,
			})
		}
	}
	return entries
}
