package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/DeafMist/comment-sentiment/internal/aggregate"
	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/classifier"
	"github.com/DeafMist/comment-sentiment/internal/inference"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/vectorizer"
)

func newInspectCommand(flags *storeFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Bind the configured artifact pair and show its version",
		RunE: func(cmd *cobra.Command, args []string) error {
			binder, closeStore, err := flags.bind(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			bundle, _ := binder.Current()
			if asJSON {
				return writeJSON(cmd, bundle.Version)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVersion(bundle.Version))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the version as JSON")
	return cmd
}

func renderVersion(v artifact.Version) string {
	labels := lo.Map(v.Labels, func(l models.Label, _ int) string { return string(l) })
	rows := [][]string{
		{"Version", v.ID},
		{"Vectorizer", v.VectorizerRef + " (" + v.VectorizerID + ")"},
		{"Classifier", v.ClassifierRef + " (" + v.ClassifierID + ")"},
		{"Vocabulary", strconv.Itoa(v.VocabularySize)},
		{"Labels", strings.Join(labels, ", ")},
		{"Normalizer", v.NormalizerVersion},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func newPredictCommand(flags *storeFlags) *cobra.Command {
	var (
		input  string
		texts  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify comments from a JSON file or --text flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			comments, err := loadComments(input, texts)
			if err != nil {
				return err
			}

			binder, closeStore, err := flags.bind(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			svc, err := inference.New(binder, inference.Options{Workers: 4}, nil)
			if err != nil {
				return err
			}
			res, err := svc.PredictBatch(comments)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, predictionRows(comments, res))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPredictions(comments, res))
			fmt.Fprintln(out, renderDistribution(aggregate.Distribute(res.Predictions())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file with a comment array or {\"comments\": [...]}")
	cmd.Flags().StringArrayVarP(&texts, "text", "t", nil, "Comment text (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print predictions as JSON")
	return cmd
}

func loadComments(path string, texts []string) ([]models.RawComment, error) {
	comments := lo.Map(texts, func(t string, _ int) models.RawComment { return models.RawComment{Text: t} })
	if path == "" {
		if len(comments) == 0 {
			return nil, errors.New("provide --input or at least one --text")
		}
		return comments, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	data = bytes.TrimSpace(data)

	var fromFile []models.RawComment
	if bytes.HasPrefix(data, []byte("[")) {
		err = json.Unmarshal(data, &fromFile)
	} else {
		var wrapped struct {
			Comments []models.RawComment `json:"comments"`
		}
		err = json.Unmarshal(data, &wrapped)
		fromFile = wrapped.Comments
	}
	if err != nil {
		return nil, fmt.Errorf("decode comments %s: %w", path, err)
	}
	return append(comments, fromFile...), nil
}

type predictionRow struct {
	Text       string       `json:"text"`
	Label      models.Label `json:"label,omitempty"`
	Confidence float64      `json:"confidence"`
	Error      string       `json:"error,omitempty"`
}

func predictionRows(comments []models.RawComment, res inference.BatchResult) []predictionRow {
	rows := make([]predictionRow, len(comments))
	for i, item := range res.Items {
		rows[i] = predictionRow{Text: comments[i].Text, Error: inference.ErrorCode(item.Err)}
		if item.Err == nil {
			rows[i].Label = item.Prediction.Label
			rows[i].Confidence = item.Prediction.Confidence
		}
	}
	return rows
}

func renderPredictions(comments []models.RawComment, res inference.BatchResult) string {
	rows := lo.Map(predictionRows(comments, res), func(r predictionRow, i int) []string {
		conf := ""
		if r.Error == "" {
			conf = strconv.FormatFloat(r.Confidence, 'f', 3, 64)
		}
		return []string{strconv.Itoa(i), truncate(r.Text, 48), string(r.Label), conf, r.Error}
	})
	return renderTable(
		[]string{"#", "Comment", "Label", "Confidence", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderDistribution(d aggregate.Distribution) string {
	rows := lo.Map(models.AllLabels, func(l models.Label, _ int) []string {
		return []string{string(l), strconv.Itoa(d.Counts[l]), strconv.FormatFloat(d.Proportions[l]*100, 'f', 1, 64) + "%"}
	})
	rows = append(rows, []string{"failed", strconv.Itoa(d.Failed), ""})
	return renderTable([]string{"Label", "Count", "Share"}, rows, []columnAlignment{alignLeft, alignRight, alignRight})
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newImportCommand(flags *storeFlags) *cobra.Command {
	var vecFile, clfFile string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate artifact files and store them in the Badger artifact store",
		Long: "Import reads a vectorizer and/or classifier JSON file, checks that it decodes, " +
			"and stores it under the --vectorizer / --classifier refs in the Badger database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if vecFile == "" && clfFile == "" {
				return errors.New("provide --vectorizer-file and/or --classifier-file")
			}
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}

			store, err := artifact.OpenBadgerStore(cfg.BadgerPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if vecFile != "" {
				data, err := os.ReadFile(vecFile)
				if err != nil {
					return err
				}
				vec, err := vectorizer.Decode(data)
				if err != nil {
					return fmt.Errorf("%s: %w", vecFile, err)
				}
				if err := store.PutVectorizer(cfg.VectorizerRef, data); err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported vectorizer %s as %s (%d terms)\n", vec.ID(), cfg.VectorizerRef, vec.Size())
			}
			if clfFile != "" {
				data, err := os.ReadFile(clfFile)
				if err != nil {
					return err
				}
				clf, err := classifier.Decode(data)
				if err != nil {
					return fmt.Errorf("%s: %w", clfFile, err)
				}
				if err := store.PutClassifier(cfg.ClassifierRef, data); err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported classifier %s as %s (%d features)\n", clf.ID(), cfg.ClassifierRef, clf.InputWidth())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vecFile, "vectorizer-file", "", "Vectorizer artifact JSON to import")
	cmd.Flags().StringVar(&clfFile, "classifier-file", "", "Classifier artifact JSON to import")
	return cmd
}

func newRefsCommand(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refs",
		Short: "List artifact refs stored in the Badger artifact store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}
			store, err := artifact.OpenBadgerStore(cfg.BadgerPath)
			if err != nil {
				return err
			}
			defer store.Close()

			vecs, clfs, err := store.Refs()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(vecs)+len(clfs))
			for _, r := range vecs {
				rows = append(rows, []string{"vectorizer", r})
			}
			for _, r := range clfs {
				rows = append(rows, []string{"classifier", r})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No artifacts stored")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Ref"}, rows, nil))
			return nil
		},
	}
}

func newFitVectorizerCommand() *cobra.Command {
	opts := vectorizer.DefaultOptions()
	var corpus, output, id string
	var noIDF, noNorm bool

	cmd := &cobra.Command{
		Use:   "fit-vectorizer",
		Short: "Fit a TF-IDF vocabulary from a corpus with one comment per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if corpus == "" || output == "" {
				return errors.New("--corpus and --out are required")
			}
			docs, err := readLines(corpus)
			if err != nil {
				return err
			}
			opts.UseIDF = !noIDF
			opts.L2Norm = !noNorm
			if id == "" {
				id = "tfidf"
			}

			vec, err := vectorizer.Fit(id, docs, opts)
			if err != nil {
				return err
			}
			data, err := vec.Encode()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write vectorizer: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fitted %s on %d documents: %d terms -> %s\n", vec.ID(), len(docs), vec.Size(), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "Text file with one training comment per line")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output path for the vectorizer JSON")
	cmd.Flags().StringVar(&id, "id", "", "Vectorizer id recorded in the artifact")
	cmd.Flags().IntVar(&opts.NGramMin, "ngram-min", opts.NGramMin, "Smallest n-gram length")
	cmd.Flags().IntVar(&opts.NGramMax, "ngram-max", opts.NGramMax, "Largest n-gram length")
	cmd.Flags().IntVar(&opts.MaxFeatures, "max-features", opts.MaxFeatures, "Keep only the most frequent n-grams (0 keeps all)")
	cmd.Flags().IntVar(&opts.MinDF, "min-df", opts.MinDF, "Minimum document frequency")
	cmd.Flags().BoolVar(&opts.SublinearTF, "sublinear-tf", false, "Use 1+ln(tf)")
	cmd.Flags().BoolVar(&opts.Binary, "binary", false, "Use presence instead of counts")
	cmd.Flags().BoolVar(&noIDF, "no-idf", false, "Disable IDF weighting")
	cmd.Flags().BoolVar(&noNorm, "no-norm", false, "Disable L2 normalization")
	return cmd
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return lines, nil
}
