package model

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// On-disk forms. Sequences are deliberately not persisted: a trained
// repository is its vectors, and estimation against a loaded repository
// only needs the vocabulary and the token count.

type tokenMemo struct {
	Frequency int
	V         []float64
	VPred     []float64
}

type repositoryMemo struct {
	Tokens    map[string]tokenMemo
	Functions map[string][]float64
	NumTokens int
}

func memoOf(repo *FunctionRepository) repositoryMemo {
	m := repositoryMemo{
		Tokens:    make(map[string]tokenMemo, len(repo.vocab)),
		Functions: make(map[string][]float64, len(repo.funcs)),
		NumTokens: repo.numTokens,
	}
	for name, tk := range repo.vocab {
		m.Tokens[name] = tokenMemo{Frequency: tk.Frequency, V: tk.V, VPred: tk.VPred}
	}
	for _, f := range repo.funcs {
		m.Functions[f.Name] = f.V
	}
	return m
}

func repositoryOf(m repositoryMemo) *FunctionRepository {
	vocab := make(Vocabulary, len(m.Tokens))
	for name, tm := range m.Tokens {
		vocab[name] = &Token{Name: name, Frequency: tm.Frequency, V: tm.V, VPred: tm.VPred}
	}
	funcs := make([]*Function, 0, len(m.Functions))
	for name, v := range m.Functions {
		funcs = append(funcs, &Function{Name: name, V: v})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	return NewFunctionRepository(vocab, funcs, m.NumTokens)
}

// ExportJSON writes the trained vectors as indented JSON.
func ExportJSON(path string, repo *FunctionRepository) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(memoOf(repo))
}

// SaveRepository writes a gob checkpoint of the repository.
func SaveRepository(path string, repo *FunctionRepository) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(memoOf(repo))
}

// LoadRepository reads a checkpoint written by SaveRepository. The loaded
// functions carry vectors only, no sequences.
func LoadRepository(path string) (*FunctionRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m repositoryMemo
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode repository %s: %w", path, err)
	}
	return repositoryOf(m), nil
}

// EmbeddingMatrix stacks the predictive vectors into a |V| x D matrix,
// rows ordered by token name. Handy for norm logging and export.
func EmbeddingMatrix(vocab Vocabulary) *mat.Dense {
	names := make([]string, 0, len(vocab))
	for name := range vocab {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil
	}
	d := len(vocab[names[0]].VPred)
	m := mat.NewDense(len(names), d, nil)
	for i, name := range names {
		m.SetRow(i, vocab[name].VPred)
	}
	return m
}
