package comparator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victorlunam/schemacmp/internal/compare"
	"github.com/victorlunam/schemacmp/internal/database"
)

// catalog is the slice of database.Database the comparator needs; tests
// substitute an in-memory implementation.
type catalog interface {
	GetObjectsList(ctx context.Context, objectTypes []string) ([]compare.SchemaObject, error)
	GetObjectDefinition(ctx context.Context, obj compare.SchemaObject) (string, error)
	GetConstraintScripts(ctx context.Context, obj compare.SchemaObject) ([]database.ConstraintScript, error)
	GetDropStatement(ctx context.Context, obj compare.SchemaObject) (string, error)
	Close() error
}

type Options struct {
	// ObjectTypes limits the comparison scope; empty means all types.
	ObjectTypes []string
	// DumpDir, when set, receives the normalized definitions of every
	// compared object for later inspection.
	DumpDir string
}

// Comparator compares two SQL Server endpoints and keeps each comparison run
// registered under an operation id so its update script can be generated
// later. It implements compare.Provider.
type Comparator struct {
	logger  *zap.Logger
	opts    Options
	connect func(ctx context.Context, endpoint compare.Endpoint) (catalog, error)

	mu         sync.Mutex
	operations map[string]*operation
}

type operation struct {
	targetDatabase string
	script         string
}

func New(logger *zap.Logger, opts Options) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.ObjectTypes) == 0 {
		opts.ObjectTypes = database.ObjectTypes
	}
	return &Comparator{
		logger: logger,
		opts:   opts,
		connect: func(ctx context.Context, endpoint compare.Endpoint) (catalog, error) {
			return database.Connect(ctx, endpoint)
		},
		operations: make(map[string]*operation),
	}
}

// Compare diffs the two endpoints and returns one difference per schema
// object that was added, removed or changed. Objects that fail to script are
// logged and skipped, matching the previous behavior.
func (c *Comparator) Compare(ctx context.Context, source, target compare.Endpoint) (*compare.ComparisonResult, error) {
	sourceDB, err := c.connect(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("error connecting to source database: %w", err)
	}
	defer sourceDB.Close()

	targetDB, err := c.connect(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("error connecting to target database: %w", err)
	}
	defer targetDB.Close()

	sourceObjects, err := sourceDB.GetObjectsList(ctx, c.opts.ObjectTypes)
	if err != nil {
		return nil, fmt.Errorf("error getting objects from source database: %w", err)
	}
	targetObjects, err := targetDB.GetObjectsList(ctx, c.opts.ObjectTypes)
	if err != nil {
		return nil, fmt.Errorf("error getting objects from target database: %w", err)
	}

	c.logger.Info("comparing endpoints",
		zap.String("source", source.Database),
		zap.String("target", target.Database),
		zap.Int("source_objects", len(sourceObjects)),
		zap.Int("target_objects", len(targetObjects)))

	targetMap := make(map[string]compare.SchemaObject)
	for _, obj := range targetObjects {
		targetMap[objectKey(obj)] = obj
	}
	sourceMap := make(map[string]compare.SchemaObject)
	for _, obj := range sourceObjects {
		sourceMap[objectKey(obj)] = obj
	}

	type entry struct {
		node   *compare.DifferenceNode
		update string
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		entries   []entry
		semaphore = make(chan struct{}, 10)
	)

	addEntry := func(node *compare.DifferenceNode, update string) {
		mu.Lock()
		entries = append(entries, entry{node: node, update: update})
		mu.Unlock()
	}

	for _, obj := range sourceObjects {
		wg.Add(1)
		go func(obj compare.SchemaObject) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			targetObj, exists := targetMap[objectKey(obj)]
			if !exists {
				node, update, err := c.buildAddition(ctx, sourceDB, obj)
				if err != nil {
					c.logger.Warn("skipping object", zap.String("object", objectKey(obj)), zap.Error(err))
					return
				}
				addEntry(node, update)
				return
			}

			node, update, err := c.buildChange(ctx, sourceDB, targetDB, obj, targetObj)
			if err != nil {
				c.logger.Warn("skipping object", zap.String("object", objectKey(obj)), zap.Error(err))
				return
			}
			if node != nil {
				addEntry(node, update)
			}
		}(obj)
	}

	for _, obj := range targetObjects {
		if _, exists := sourceMap[objectKey(obj)]; exists {
			continue
		}
		wg.Add(1)
		go func(obj compare.SchemaObject) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			node, update, err := c.buildRemoval(ctx, targetDB, obj)
			if err != nil {
				c.logger.Warn("skipping object", zap.String("object", objectKey(obj)), zap.Error(err))
				return
			}
			addEntry(node, update)
		}(obj)
	}

	wg.Wait()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].node.Name < entries[j].node.Name
	})

	differences := make([]*compare.DifferenceNode, 0, len(entries))
	var updates []string
	for _, e := range entries {
		differences = append(differences, e.node)
		if e.update != "" {
			updates = append(updates, fmt.Sprintf("-- Object: %s\n%s\nGO\n", e.node.Name, e.update))
		}
	}

	operationID := uuid.NewString()
	script := fmt.Sprintf("-- Schema comparison script\n-- Update %s to match %s\n\n%s",
		target.Database, source.Database, strings.Join(updates, "\n"))

	c.mu.Lock()
	c.operations[operationID] = &operation{targetDatabase: target.Database, script: script}
	c.mu.Unlock()

	c.logger.Info("comparison finished",
		zap.String("operation_id", operationID),
		zap.Int("differences", len(differences)))

	return &compare.ComparisonResult{
		Success:     true,
		Differences: differences,
		OperationID: operationID,
	}, nil
}

// GenerateScript writes the target-side update script of a previous
// comparison run to the destination file.
func (c *Comparator) GenerateScript(ctx context.Context, operationID, targetDatabaseName, destinationFilePath string) error {
	c.mu.Lock()
	op, ok := c.operations[operationID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown comparison operation: %s", operationID)
	}
	if targetDatabaseName != "" && targetDatabaseName != op.targetDatabase {
		return fmt.Errorf("operation %s targets database %s, not %s", operationID, op.targetDatabase, targetDatabaseName)
	}

	if err := os.WriteFile(destinationFilePath, []byte(op.script), 0644); err != nil {
		return fmt.Errorf("error writing script file: %w", err)
	}

	c.logger.Info("script generated",
		zap.String("operation_id", operationID),
		zap.String("path", destinationFilePath))
	return nil
}

func (c *Comparator) buildAddition(ctx context.Context, sourceDB catalog, obj compare.SchemaObject) (*compare.DifferenceNode, string, error) {
	definition, err := sourceDB.GetObjectDefinition(ctx, obj)
	if err != nil {
		return nil, "", err
	}

	node := &compare.DifferenceNode{
		DifferenceType: compare.ObjectType,
		Name:           displayName(obj),
		SourceValue:    strptr(displayName(obj)),
		UpdateAction:   compare.ActionAdd,
		SourceScript:   definition,
		TargetScript:   compare.NoScript,
		Children:       []*compare.DifferenceNode{},
	}
	if err := c.attachConstraintChildren(ctx, node, sourceDB, nil, obj); err != nil {
		return nil, "", err
	}

	return node, compare.AggregateScript(node, compare.SourceSide), nil
}

func (c *Comparator) buildRemoval(ctx context.Context, targetDB catalog, obj compare.SchemaObject) (*compare.DifferenceNode, string, error) {
	definition, err := targetDB.GetObjectDefinition(ctx, obj)
	if err != nil {
		return nil, "", err
	}
	drop, err := targetDB.GetDropStatement(ctx, obj)
	if err != nil {
		return nil, "", err
	}

	node := &compare.DifferenceNode{
		DifferenceType: compare.ObjectType,
		Name:           displayName(obj),
		TargetValue:    strptr(displayName(obj)),
		UpdateAction:   compare.ActionDelete,
		SourceScript:   compare.NoScript,
		TargetScript:   definition,
		Children:       []*compare.DifferenceNode{},
	}
	if err := c.attachConstraintChildren(ctx, node, nil, targetDB, obj); err != nil {
		return nil, "", err
	}

	return node, drop, nil
}

func (c *Comparator) buildChange(ctx context.Context, sourceDB, targetDB catalog, sourceObj, targetObj compare.SchemaObject) (*compare.DifferenceNode, string, error) {
	sourceDefinition, err := sourceDB.GetObjectDefinition(ctx, sourceObj)
	if err != nil {
		return nil, "", err
	}
	targetDefinition, err := targetDB.GetObjectDefinition(ctx, targetObj)
	if err != nil {
		return nil, "", err
	}

	node := &compare.DifferenceNode{
		DifferenceType: compare.ObjectType,
		Name:           displayName(sourceObj),
		SourceValue:    strptr(displayName(sourceObj)),
		TargetValue:    strptr(displayName(targetObj)),
		UpdateAction:   compare.ActionChange,
		SourceScript:   sourceDefinition,
		TargetScript:   targetDefinition,
		Children:       []*compare.DifferenceNode{},
	}
	if err := c.attachConstraintChildren(ctx, node, sourceDB, targetDB, sourceObj); err != nil {
		return nil, "", err
	}

	normalizedSource := normalizeDefinition(compare.AggregateScript(node, compare.SourceSide))
	normalizedTarget := normalizeDefinition(compare.AggregateScript(node, compare.TargetSide))

	if err := c.dumpDefinitions(sourceObj, normalizedSource, normalizedTarget); err != nil {
		return nil, "", err
	}

	if normalizedSource == normalizedTarget {
		return nil, "", nil
	}

	drop, err := targetDB.GetDropStatement(ctx, targetObj)
	if err != nil {
		return nil, "", err
	}
	update := fmt.Sprintf("%s\nGO\n%s", drop, compare.AggregateScript(node, compare.SourceSide))
	return node, update, nil
}

// attachConstraintChildren adds one child difference per table constraint,
// merged by constraint name across both sides. An absent side carries the
// NoScript sentinel so script aggregation skips it.
func (c *Comparator) attachConstraintChildren(ctx context.Context, node *compare.DifferenceNode, sourceDB, targetDB catalog, obj compare.SchemaObject) error {
	if obj.Type != "USER_TABLE" {
		return nil
	}

	sourceScripts := map[string]string{}
	targetScripts := map[string]string{}
	var order []string
	seen := map[string]bool{}

	if sourceDB != nil {
		constraints, err := sourceDB.GetConstraintScripts(ctx, obj)
		if err != nil {
			return err
		}
		for _, cs := range constraints {
			sourceScripts[cs.Name] = cs.Script
			if !seen[cs.Name] {
				seen[cs.Name] = true
				order = append(order, cs.Name)
			}
		}
	}
	if targetDB != nil {
		constraints, err := targetDB.GetConstraintScripts(ctx, obj)
		if err != nil {
			return err
		}
		for _, cs := range constraints {
			targetScripts[cs.Name] = cs.Script
			if !seen[cs.Name] {
				seen[cs.Name] = true
				order = append(order, cs.Name)
			}
		}
	}

	for _, name := range order {
		child := &compare.DifferenceNode{
			DifferenceType: compare.PropertyType,
			Name:           name,
			SourceScript:   compare.NoScript,
			TargetScript:   compare.NoScript,
			Children:       []*compare.DifferenceNode{},
		}
		if s, ok := sourceScripts[name]; ok {
			child.SourceScript = "\n" + s
		}
		if s, ok := targetScripts[name]; ok {
			child.TargetScript = "\n" + s
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

func (c *Comparator) dumpDefinitions(obj compare.SchemaObject, normalizedSource, normalizedTarget string) error {
	if c.opts.DumpDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.opts.DumpDir, 0755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}
	base := fmt.Sprintf("%s-%s-%s.sql", obj.Type, obj.Schema, obj.Name)
	if err := os.WriteFile(filepath.Join(c.opts.DumpDir, "SOURCE-"+base), []byte(normalizedSource), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.opts.DumpDir, "TARGET-"+base), []byte(normalizedTarget), 0644)
}

// normalizeDefinition strips whitespace noise so cosmetic differences don't
// count as changes.
func normalizeDefinition(definition string) string {
	result := strings.ReplaceAll(definition, "\t", " ")

	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}

	result = strings.ReplaceAll(result, "\r\n", "\n")

	lines := strings.Split(result, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func objectKey(obj compare.SchemaObject) string {
	return fmt.Sprintf("%s.%s.%s", obj.Schema, obj.Name, obj.Type)
}

func displayName(obj compare.SchemaObject) string {
	return fmt.Sprintf("[%s].[%s]", obj.Schema, obj.Name)
}

func strptr(s string) *string { return &s }
