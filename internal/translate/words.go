package translate

import (
	"context"

	"lingocap/internal/errs"
)

// TranslateWords returns a word-to-translation dictionary for learner
// word lookup. Words whose translation cannot be obtained after retries
// are left out rather than failing the whole dictionary.
func (c *Client) TranslateWords(ctx context.Context, words []string, sourceLang, targetLang string) (map[string]string, error) {
	dict := make(map[string]string, len(words))
	for lo := 0; lo < len(words); lo += c.batchSize {
		hi := lo + c.batchSize
		if hi > len(words) {
			hi = len(words)
		}
		batch := words[lo:hi]

		translated, err := c.translateBatch(ctx, batch, sourceLang, targetLang)
		if err == nil && len(translated) == len(batch) {
			for k, t := range translated {
				dict[batch[k]] = t
			}
			continue
		}
		if err != nil && !errs.IsTransient(err) {
			return nil, err
		}

		c.logger.Warnf("translate: word batch %d-%d failed, retrying per word: %v", lo, hi, err)
		for _, w := range batch {
			single, serr := c.translateBatch(ctx, []string{w}, sourceLang, targetLang)
			if serr != nil || len(single) != 1 {
				if serr != nil && !errs.IsTransient(serr) {
					return nil, serr
				}
				continue
			}
			dict[w] = single[0]
		}
	}
	return dict, nil
}
