package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB cap for corpus entries
)

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addBaselineSeeds(f)
}

// addTestdataSeeds walks the repository testdata tree and adds every
// Python file it finds.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".py" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		return
	}
}

// addBaselineSeeds covers the syntax families the corpus files might
// miss, so the fuzzer starts from every statement shape even with an
// empty testdata tree.
func addBaselineSeeds(f *testing.F) {
	seeds := []string{
		"",
		"x = 1\n",
		"def f(a: int) -> int:\n    return a + 1\n",
		"def g(s: str) -> str:\n    \"\"\"Doc.\"\"\"\n    return s.upper()\n",
		"class C:\n    def __init__(self, n: int):\n        self.n = n\n",
		"for i in range(10):\n    print(i)\n",
		"while True:\n    break\n",
		"try:\n    x = 1 / 0\nexcept ZeroDivisionError:\n    x = 0\n",
		"import json\nfrom typing import Optional\n",
		"if __name__ == \"__main__\":\n    main()\n",
		"xs = [x * 2 for x in range(5) if x % 2 == 0]\n",
		"def h(*args: int, **kwargs: str) -> None:\n    pass\n",
		"match cmd:\n    case \"start\":\n        run()\n    case _:\n        stop()\n",
		"# @depyler: optimization_level = \"aggressive\"\ndef hot() -> int:\n    return 0\n",
		"\xff\xfe broken bytes \x00",
		"def broken(:\n    pass\n",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
