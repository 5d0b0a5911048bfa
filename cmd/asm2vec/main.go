package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/XX-Official/asm2vec/asm"
	"github.com/XX-Official/asm2vec/model"
	"github.com/XX-Official/asm2vec/params"
	"github.com/XX-Official/asm2vec/training"
	"github.com/XX-Official/asm2vec/utils"
)

var (
	inDir    string
	outJSON  string
	savePath string
	loadPath string
	estPath  string

	dFlag        int
	alphaFlag    float64
	intervalFlag int
	walksFlag    int
	negFlag      int
	iterFlag     int
	seedFlag     uint64
)

func init() {
	flag.StringVar(&inDir, "in", "", "Directory of .s function listings to train on")
	flag.StringVar(&outJSON, "out", "", "Export trained vectors as JSON to this path")
	flag.StringVar(&savePath, "save", "", "Save a gob checkpoint to this path")
	flag.StringVar(&loadPath, "load", "", "Load a gob checkpoint instead of training")
	flag.StringVar(&estPath, "estimate", "", "Estimate a vector for this single .s listing")

	def := params.Default()
	flag.IntVar(&dFlag, "d", def.D, "Embedding width (even)")
	flag.Float64Var(&alphaFlag, "alpha", def.Alpha, "Initial learning rate")
	flag.IntVar(&intervalFlag, "interval", def.AlphaUpdateInterval, "Learning-rate update interval in tokens")
	flag.IntVar(&walksFlag, "walks", def.RndWalks, "Random walks per function")
	flag.IntVar(&negFlag, "neg", def.NegSamples, "Negative samples per token")
	flag.IntVar(&iterFlag, "iter", def.Iteration, "Iteration count in the learning-rate schedule")
	flag.Uint64Var(&seedFlag, "seed", def.Seed, "Random seed")
}

func main() {
	flag.Parse()

	p := params.Params{
		D:                   dFlag,
		Alpha:               alphaFlag,
		AlphaUpdateInterval: intervalFlag,
		RndWalks:            walksFlag,
		NegSamples:          negFlag,
		Iteration:           iterFlag,
		Seed:                seedFlag,
	}

	var repo *model.FunctionRepository
	switch {
	case loadPath != "":
		var err error
		repo, err = model.LoadRepository(loadPath)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Loaded checkpoint: %d tokens in vocab, %d functions\n",
			len(repo.Vocab()), len(repo.Funcs()))
	case inDir != "":
		funcs, err := loadFunctions(inDir, p)
		if err != nil {
			panic(err)
		}
		repo, err = model.BuildRepository(funcs, p)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Built repository: %d functions, %d vocab tokens, %d total tokens\n",
			len(repo.Funcs()), len(repo.Vocab()), repo.NumTokens())

		if err := training.Train(repo, p); err != nil {
			panic(err)
		}
		fmt.Printf("Trained. Embedding norm=%.6g\n",
			utils.MatrixNorm(model.EmbeddingMatrix(repo.Vocab())))
	default:
		fmt.Println("Nothing to do: pass -in to train or -load to reuse a checkpoint")
		flag.Usage()
		os.Exit(2)
	}

	if estPath != "" {
		f, err := loadFunction(estPath, p, rand.New(rand.NewPCG(p.Seed, p.Seed)))
		if err != nil {
			panic(err)
		}
		v, err := training.Estimate(f, repo, p)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%s: %v\n", f.Name, v)
	}

	if savePath != "" {
		if err := model.SaveRepository(savePath, repo); err != nil {
			panic(err)
		}
		fmt.Printf("Saved checkpoint to %s\n", savePath)
	}
	if outJSON != "" {
		if err := model.ExportJSON(outJSON, repo); err != nil {
			panic(err)
		}
		fmt.Printf("Exported vectors to %s\n", outJSON)
	}
}

// loadFunctions reads every .s file in dir as one function listing.
func loadFunctions(dir string, p params.Params) ([]*model.Function, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.s"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .s files in %s", dir)
	}
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	funcs := make([]*model.Function, 0, len(paths))
	for _, path := range paths {
		f, err := loadFunction(path, p, rng)
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, f)
	}
	return funcs, nil
}

func loadFunction(path string, p params.Params, rng *rand.Rand) (*model.Function, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	entry := asm.BuildCFG(lines)
	if entry == nil {
		return nil, fmt.Errorf("%s holds no instructions", path)
	}
	seqs := asm.RandomWalks(entry, p.RndWalks, asm.DefaultMaxWalkBlocks, rng)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return model.NewFunction(name, seqs), nil
}
