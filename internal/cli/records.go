package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pokedex/internal/core"
)

func recordPath(id string) string {
	return "/records/" + url.PathEscape(id)
}

func newListCmd() *cobra.Command {
	var (
		sortOrder, searchColumn, keyword string
		limit, page                      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, optionally filtered by keyword",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			flags := cmd.Flags()
			if flags.Changed("sort-order") {
				q.Set("sort_order", sortOrder)
			}
			if flags.Changed("search-column") {
				q.Set("search_column", searchColumn)
			}
			if keyword != "" {
				q.Set("keyword", keyword)
			}
			if flags.Changed("limit") {
				q.Set("limit", strconv.Itoa(limit))
			}
			if flags.Changed("page") {
				q.Set("page", strconv.Itoa(page))
			}

			path := "/records"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var records []core.Record
			if err := client.Get(cmd.Context(), path, &records); err != nil {
				return err
			}
			output(cmd).Print(records)
			return nil
		},
	}

	cmd.Flags().StringVar(&sortOrder, "sort-order", core.DefaultSortOrder, "Sort by id: asc or desc")
	cmd.Flags().StringVar(&searchColumn, "search-column", core.DefaultSearchColumn, "Column searched by --keyword")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Case-insensitive substring to search for")
	cmd.Flags().IntVar(&limit, "limit", core.DefaultLimit, "Records per page")
	cmd.Flags().IntVar(&page, "page", core.DefaultPage, "Page number, starting at 1")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec core.Record
			if err := client.Get(cmd.Context(), recordPath(args[0]), &rec); err != nil {
				return err
			}
			output(cmd).Print(rec)
			return nil
		},
	}
}

// bodyFlags reads a JSON request body from --data or --file.
type bodyFlags struct {
	data string
	file string
}

func (b *bodyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&b.data, "data", "d", "", "JSON body")
	cmd.Flags().StringVarP(&b.file, "file", "f", "", "Read the JSON body from a file, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("data", "file")
}

// read returns the body, or nil when neither flag was given.
func (b *bodyFlags) read(stdin io.Reader) (json.RawMessage, error) {
	var raw []byte
	switch {
	case b.data != "":
		raw = []byte(b.data)
	case b.file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = data
	case b.file != "":
		data, err := os.ReadFile(b.file)
		if err != nil {
			return nil, err
		}
		raw = data
	default:
		return nil, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func newCreateCmd() *cobra.Command {
	var body bodyFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record from a JSON body",
		Example: `  pokedexctl create -d '{"name":"Pikachu","type_1":"Electric","total":320,"hp":35,
    "attack":55,"defense":40,"sp_atk":50,"sp_def":50,"speed":90,"legendary":false}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := body.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if raw == nil {
				return fmt.Errorf("--data or --file is required")
			}

			var rec core.Record
			if err := client.Post(cmd.Context(), "/records", raw, &rec); err != nil {
				return err
			}
			output(cmd).Print(rec)
			return nil
		},
	}
	body.register(cmd)

	return cmd
}

func newReplaceCmd() *cobra.Command {
	var body bodyFlags

	cmd := &cobra.Command{
		Use:   "replace ID",
		Short: "Overwrite every attribute of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := body.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if raw == nil {
				return fmt.Errorf("--data or --file is required")
			}

			var rec core.Record
			if err := client.Put(cmd.Context(), recordPath(args[0]), raw, &rec); err != nil {
				return err
			}
			output(cmd).Print(rec)
			return nil
		},
	}
	body.register(cmd)

	return cmd
}

// parseAssignment turns key=value into a JSON field. Values that parse as
// JSON literals (numbers, true/false, null) keep their type; anything else
// is sent as a string.
func parseAssignment(s string) (string, any, error) {
	key, val, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid --set %q, expected key=value", s)
	}
	if _, ok := core.LookupColumn(key); !ok {
		return "", nil, fmt.Errorf("unknown field %q", key)
	}

	switch {
	case val == "null":
		return key, nil, nil
	case val == "true" || val == "false":
		return key, val == "true", nil
	}
	if n, err := strconv.Atoi(val); err == nil {
		return key, n, nil
	}
	return key, val, nil
}

func newPatchCmd() *cobra.Command {
	var (
		body bodyFlags
		sets []string
	)

	cmd := &cobra.Command{
		Use:   "patch ID",
		Short: "Change some attributes of a record",
		Example: `  pokedexctl patch 25 --set hp=40 --set type_2=null
  pokedexctl patch 25 -d '{"speed":100}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := body.read(cmd.InOrStdin())
			if err != nil {
				return err
			}

			fields := map[string]any{}
			if raw != nil {
				if err := json.Unmarshal(raw, &fields); err != nil {
					return fmt.Errorf("body must be a JSON object: %w", err)
				}
			}
			for _, s := range sets {
				key, val, err := parseAssignment(s)
				if err != nil {
					return err
				}
				fields[key] = val
			}

			var rec core.Record
			if err := client.Patch(cmd.Context(), recordPath(args[0]), fields, &rec); err != nil {
				return err
			}
			output(cmd).Print(rec)
			return nil
		},
	}
	body.register(cmd)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value, repeatable")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), recordPath(args[0])); err != nil {
				return err
			}
			output(cmd).PrintMessage(fmt.Sprintf("Deleted record %s", args[0]))
			return nil
		},
	}
}
