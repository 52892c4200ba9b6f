package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sasank-xyz/github-for-jira/internal/ghclient"
)

var (
	graphqlInstallationID int64
	graphqlQueryFile      string
	graphqlFallbackFile   string
	graphqlExpensiveField string
	graphqlVariables      []string
)

var graphqlCmd = &cobra.Command{
	Use:   "graphql",
	Short: "Send a GraphQL query as an installation",
	Long: `Sends a GraphQL query authenticated with an installation token and prints the data.
If a fallback query is given, it is sent instead when GitHub rejects the expensive field
of the original query.`,
	Example: `  github-for-jira graphql -f config.yaml --id 1234 --query-file pulls.graphql \
    --fallback-file pulls-lite.graphql --expensive-field changedFiles --var owner=acme`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if graphqlInstallationID <= 0 {
			return fmt.Errorf("--id is required")
		}
		if graphqlQueryFile == "" {
			return fmt.Errorf("--query-file is required")
		}

		variables, err := parseVariables(graphqlVariables)
		if err != nil {
			return err
		}

		req, err := readGraphQLRequest(graphqlQueryFile, variables)
		if err != nil {
			return err
		}
		if graphqlFallbackFile != "" {
			fallback, err := readGraphQLRequest(graphqlFallbackFile, variables)
			if err != nil {
				return err
			}
			req.Fallback = &fallback
			req.ExpensiveField = graphqlExpensiveField
		}

		client, closeFn, err := f.GetClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		var data json.RawMessage
		if err := client.Query(cmd.Context(), graphqlInstallationID, req, &data); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	},
}

func readGraphQLRequest(path string, variables map[string]any) (ghclient.GraphQLRequest, error) {
	query, err := os.ReadFile(path)
	if err != nil {
		return ghclient.GraphQLRequest{}, fmt.Errorf("reading query file: %w", err)
	}
	return ghclient.GraphQLRequest{
		Query:     string(query),
		Variables: variables,
	}, nil
}

// parseVariables turns key=value pairs into query variables.
// Values that are valid JSON (numbers, booleans, objects) are decoded, everything else is a string.
func parseVariables(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	variables := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			variables[key] = decoded
		} else {
			variables[key] = value
		}
	}
	return variables, nil
}

func init() {
	rootCmd.AddCommand(graphqlCmd)
	graphqlCmd.Flags().Int64Var(&graphqlInstallationID, "id", 0, "Installation ID to authenticate as")
	graphqlCmd.Flags().StringVar(&graphqlQueryFile, "query-file", "", "File containing the GraphQL query")
	graphqlCmd.Flags().StringVar(&graphqlFallbackFile, "fallback-file", "", "File containing a cheaper fallback query")
	graphqlCmd.Flags().StringVar(&graphqlExpensiveField, "expensive-field", "changedFiles", "Field that triggers the fallback query when rejected")
	graphqlCmd.Flags().StringArrayVar(&graphqlVariables, "var", nil, "Query variable as key=value (repeatable)")
}
