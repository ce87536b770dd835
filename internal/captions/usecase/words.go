package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"lingocap/internal/cache"
	"lingocap/internal/models"
)

const (
	transcriptsDirName = "transcripts"
	wordsDirName       = "words"

	// maxDictionaryWords caps the lookup vocabulary per video so one very
	// long transcript cannot flood the translation service.
	maxDictionaryWords = 2000
)

func (u *captionsUC) GetWordDictionary(ctx context.Context, videoID, sourceLang, targetLang string) (map[string]string, error) {
	if videoID == "" || sourceLang == "" || targetLang == "" {
		return nil, fmt.Errorf("video id, source and target languages are required")
	}
	if sourceLang == targetLang {
		return nil, fmt.Errorf("source language cannot equal target language")
	}
	if u.words == nil || u.artifacts == nil {
		return nil, fmt.Errorf("word lookup is not enabled")
	}
	if _, err := u.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}

	tokens, err := u.transcriptWords(videoID)
	if err != nil {
		return nil, err
	}

	cachePath := u.artifacts.Path(videoID, wordsDirName,
		cache.Key(sourceLang, targetLang, strings.Join(tokens, "\x00"))+".json")
	dict := map[string]string{}
	if data, readErr := os.ReadFile(cachePath); readErr == nil && json.Unmarshal(data, &dict) == nil {
		return dict, nil
	}

	dict, err = u.words.TranslateWords(ctx, tokens, sourceLang, targetLang)
	if err != nil {
		u.logger.Errorf("GetWordDictionary - TranslateWords error: %v", err)
		return nil, fmt.Errorf("failed to translate words: %v", err)
	}
	if data, marshalErr := json.Marshal(dict); marshalErr == nil {
		if writeErr := u.artifacts.WriteFile(cachePath, data); writeErr != nil {
			u.logger.Warnf("GetWordDictionary - cache write: %v", writeErr)
		}
	}
	u.logger.Infof("built word dictionary for video %s (%s->%s, %d words)", videoID, sourceLang, targetLang, len(dict))
	return dict, nil
}

// transcriptWords tokenizes a video's cached transcript into a sorted,
// deduplicated word list.
func (u *captionsUC) transcriptWords(videoID string) ([]string, error) {
	segments, err := u.loadTranscript(videoID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var words []string
	for _, s := range segments {
		for _, w := range strings.FieldsFunc(s.Text, notWordRune) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("transcript not found")
	}
	sort.Strings(words)
	if len(words) > maxDictionaryWords {
		words = words[:maxDictionaryWords]
	}
	return words, nil
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
}

// loadTranscript reads the newest cached transcript artifact of a video.
func (u *captionsUC) loadTranscript(videoID string) ([]models.TranscriptSegment, error) {
	matches, err := filepath.Glob(filepath.Join(u.artifacts.VideoDir(videoID), transcriptsDirName, "*.json"))
	if err != nil {
		return nil, err
	}

	var newest string
	var newestMod time.Time
	for _, m := range matches {
		info, statErr := os.Stat(m)
		if statErr != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = m, info.ModTime()
		}
	}
	if newest == "" {
		return nil, fmt.Errorf("transcript not found")
	}

	data, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("transcript not found")
	}
	var segments []models.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		u.logger.Errorf("GetWordDictionary - transcript decode error: %v", err)
		return nil, fmt.Errorf("transcript not found")
	}
	return segments, nil
}
