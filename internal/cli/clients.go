package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// clientFlags are shared by add and update
type clientFlags struct {
	firstName      string
	familyName     string
	city           string
	street         string
	buildingNumber string
	lines          []string
	phone          string
	secondaryPhone string
	email          string
}

var (
	addFlags    clientFlags
	updateFlags clientFlags

	noTracking bool
	assumeYes  bool

	searchFirstName  string
	searchFamilyName string
	searchCity       string
	searchOrder      string
	searchPage       int
	searchPerPage    int
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage client records",
	Long:  "Create, read, update, delete and search the client records of one tenant",
}

var clientsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, err := selectedTenant()
		if err != nil {
			return err
		}

		address, err := domain.NewAddress(addFlags.city, addFlags.street, addFlags.buildingNumber, addFlags.lines)
		if err != nil {
			return err
		}
		contact, err := domain.NewContactDetails(addFlags.phone, addFlags.secondaryPhone, addFlags.email)
		if err != nil {
			return err
		}
		client, err := domain.NewClient(addFlags.firstName, addFlags.familyName, address, contact, tenant)
		if err != nil {
			return err
		}

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.ClientRepository()
		if err != nil {
			return err
		}

		id, err := repo.Create(cmd.Context(), client)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.New(color.FgGreen).Sprint("Client created successfully"))
		fmt.Fprintf(out, "Client ID: %s\n", id)
		return nil
	},
}

var clientsGetCmd = &cobra.Command{
	Use:   "get <client-id>",
	Short: "Show a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseClientID(args[0])
		if err != nil {
			return err
		}

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.ClientRepository()
		if err != nil {
			return err
		}

		get := repo.GetByID
		if noTracking {
			get = repo.GetByIDNoTracking
		}
		client, found, err := get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get client: %w", err)
		}
		if !found {
			return fmt.Errorf("client not found: %s", id)
		}

		printClient(cmd.OutOrStdout(), client)
		return nil
	},
}

var clientsUpdateCmd = &cobra.Command{
	Use:   "update <client-id>",
	Short: "Update a client",
	Long: `Update a client. Only the flags that are given change; the address and the
contact details are each replaced as a whole when any of their flags is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseClientID(args[0])
		if err != nil {
			return err
		}

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.ClientRepository()
		if err != nil {
			return err
		}

		client, found, err := repo.GetByID(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get client: %w", err)
		}
		if !found {
			return fmt.Errorf("client not found: %s", id)
		}

		if err := applyUpdateFlags(cmd, client); err != nil {
			return err
		}

		if _, err := repo.Update(cmd.Context(), client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Client '%s' %s\n", id, color.New(color.FgGreen).Sprint("updated successfully"))
		return nil
	},
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <client-id>",
	Short: "Delete a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseClientID(args[0])
		if err != nil {
			return err
		}

		if !assumeYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to delete without confirmation: pass --yes")
			}
			// Confirm deletion
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Are you sure you want to delete client '%s'? (yes/no): ", id)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.ClientRepository()
		if err != nil {
			return err
		}

		if err := repo.Delete(cmd.Context(), id); err != nil {
			if domain.IsNotFound(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", color.New(color.FgYellow).Sprint("Not found"), id)
			}
			return fmt.Errorf("failed to delete client: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Client '%s' %s\n", id, color.New(color.FgGreen).Sprint("deleted successfully"))
		return nil
	},
}

var clientsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search clients by name or city",
	Long: `Search clients. Matching is a case-insensitive substring match; given
criteria are combined with AND. --order takes field[:asc|desc] pairs separated
by commas, e.g. "city:desc,first_name".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := parseOrder(searchOrder)
		if err != nil {
			return err
		}

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		repo, err := services.ClientRepository()
		if err != nil {
			return err
		}

		clients, err := repo.Search(cmd.Context(), repository.SearchCriteria{
			FirstName:  searchFirstName,
			FamilyName: searchFamilyName,
			City:       searchCity,
			Order:      order,
			Page:       searchPage,
			PerPage:    searchPerPage,
		})
		if err != nil {
			return fmt.Errorf("failed to search clients: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(clients) == 0 {
			fmt.Fprintln(out, "No clients found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLIENT ID\tNAME\tCITY\tPHONE\tEMAIL")
		for _, c := range clients {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				c.ID(),
				strings.TrimSpace(c.FirstName()+" "+c.FamilyName()),
				c.Address().City(),
				c.ContactDetails().PrimaryPhoneNumber(),
				c.ContactDetails().EmailAddress(),
			)
		}
		w.Flush()

		return nil
	},
}

func parseClientID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid client id %q: %w", raw, err)
	}
	return id, nil
}

// parseOrder parses "field[:asc|desc],..." into order clauses
func parseOrder(raw string) ([]repository.OrderClause, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var clauses []repository.OrderClause
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ":")
		clause := repository.OrderClause{Field: strings.TrimSpace(field), Direction: repository.OrderAsc}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			clause.Direction = repository.OrderDesc
		default:
			return nil, fmt.Errorf("invalid order direction %q for %s", dir, field)
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// applyUpdateFlags copies the changed update flags onto client
func applyUpdateFlags(cmd *cobra.Command, client *domain.Client) error {
	flags := cmd.Flags()
	changed := func(names ...string) bool {
		for _, n := range names {
			if flags.Changed(n) {
				return true
			}
		}
		return false
	}

	if changed("first-name", "family-name") {
		firstName, familyName := client.FirstName(), client.FamilyName()
		if flags.Changed("first-name") {
			firstName = updateFlags.firstName
		}
		if flags.Changed("family-name") {
			familyName = updateFlags.familyName
		}
		// Names only change through UpdateClient; it keeps the current value objects.
		address := client.Address()
		contact := client.ContactDetails()
		source, err := domain.NewClient(firstName, familyName, &address, &contact, client.TenantID())
		if err != nil {
			return err
		}
		if err := client.UpdateClient(source); err != nil {
			return err
		}
	}

	if changed("city", "street", "building-number", "line") {
		current := client.Address()
		city, street, building, lines := current.City(), current.Street(), current.BuildingNumber(), current.AddressLines()
		if flags.Changed("city") {
			city = updateFlags.city
		}
		if flags.Changed("street") {
			street = updateFlags.street
		}
		if flags.Changed("building-number") {
			building = updateFlags.buildingNumber
		}
		if flags.Changed("line") {
			lines = updateFlags.lines
		}
		address, err := domain.NewAddress(city, street, building, lines)
		if err != nil {
			return err
		}
		if err := client.UpdateAddress(address); err != nil {
			return err
		}
	}

	if changed("phone", "secondary-phone", "email") {
		current := client.ContactDetails()
		phone, secondary, email := current.PrimaryPhoneNumber(), current.SecondaryPhoneNumber(), current.EmailAddress()
		if flags.Changed("phone") {
			phone = updateFlags.phone
		}
		if flags.Changed("secondary-phone") {
			secondary = updateFlags.secondaryPhone
		}
		if flags.Changed("email") {
			email = updateFlags.email
		}
		contact, err := domain.NewContactDetails(phone, secondary, email)
		if err != nil {
			return err
		}
		if err := client.UpdateContactDetails(contact); err != nil {
			return err
		}
	}

	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer)) == "yes"
}

func printClient(out io.Writer, c *domain.Client) {
	address := c.Address()
	contact := c.ContactDetails()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Client ID:\t%s\n", c.ID())
	fmt.Fprintf(w, "Tenant ID:\t%s\n", c.TenantID())
	fmt.Fprintf(w, "Name:\t%s\n", strings.TrimSpace(c.FirstName()+" "+c.FamilyName()))
	fmt.Fprintf(w, "Address:\t%s\n", address.String())
	for i, line := range address.AddressLines() {
		fmt.Fprintf(w, "  line %d:\t%s\n", i+1, line)
	}
	fmt.Fprintf(w, "Contact:\t%s\n", contact.String())
	w.Flush()
}

func registerClientFlags(cmd *cobra.Command, f *clientFlags) {
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.familyName, "family-name", "", "family name")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.street, "street", "", "street")
	cmd.Flags().StringVar(&f.buildingNumber, "building-number", "", "building number")
	cmd.Flags().StringArrayVar(&f.lines, "line", nil, "address line (repeatable, in order)")
	cmd.Flags().StringVar(&f.phone, "phone", "", "primary phone number")
	cmd.Flags().StringVar(&f.secondaryPhone, "secondary-phone", "", "secondary phone number")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
}

func init() {
	registerClientFlags(clientsAddCmd, &addFlags)
	_ = clientsAddCmd.MarkFlagRequired("first-name")
	_ = clientsAddCmd.MarkFlagRequired("city")
	_ = clientsAddCmd.MarkFlagRequired("phone")

	registerClientFlags(clientsUpdateCmd, &updateFlags)

	clientsGetCmd.Flags().BoolVar(&noTracking, "no-tracking", false, "read through the ORM path instead of the row mapper")
	clientsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")

	clientsSearchCmd.Flags().StringVar(&searchFirstName, "first-name", "", "first name contains")
	clientsSearchCmd.Flags().StringVar(&searchFamilyName, "family-name", "", "family name contains")
	clientsSearchCmd.Flags().StringVar(&searchCity, "city", "", "city contains")
	clientsSearchCmd.Flags().StringVar(&searchOrder, "order", "", "ordering, e.g. city:desc,first_name")
	clientsSearchCmd.Flags().IntVar(&searchPage, "page", 1, "page number (with --per-page)")
	clientsSearchCmd.Flags().IntVar(&searchPerPage, "per-page", 0, "page size (0 returns all)")

	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsGetCmd)
	clientsCmd.AddCommand(clientsUpdateCmd)
	clientsCmd.AddCommand(clientsDeleteCmd)
	clientsCmd.AddCommand(clientsSearchCmd)
}
