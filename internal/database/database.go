package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/victorlunam/schemacmp/internal/compare"
)

type Database struct {
	Endpoint compare.Endpoint
	DB       *sql.DB
}

// Connect opens and pings a SQL Server endpoint.
func Connect(ctx context.Context, endpoint compare.Endpoint) (*Database, error) {
	connString := fmt.Sprintf("Server=%s,%s;Database=%s;User Id=%s;Password=%s;TrustServerCertificate=true;App Name=schemacmp",
		endpoint.Server, endpoint.Port, endpoint.Database, endpoint.User, endpoint.Password)

	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{Endpoint: endpoint, DB: db}, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// objectTypeFilters maps the user-facing object type names to the type_desc
// values used by sys.objects.
var objectTypeFilters = map[string][]string{
	"TABLE":     {"USER_TABLE"},
	"VIEW":      {"VIEW"},
	"PROCEDURE": {"SQL_STORED_PROCEDURE"},
	"FUNCTION":  {"SQL_SCALAR_FUNCTION", "SQL_INLINE_TABLE_VALUED_FUNCTION", "SQL_TABLE_VALUED_FUNCTION"},
	"TRIGGER":   {"SQL_TRIGGER"},
}

// ObjectTypes lists the selectable object type names.
var ObjectTypes = []string{"TABLE", "VIEW", "PROCEDURE", "FUNCTION", "TRIGGER"}

// GetObjectsList returns the non-system objects of the requested types,
// ordered by type then name.
func (d *Database) GetObjectsList(ctx context.Context, objectTypes []string) ([]compare.SchemaObject, error) {
	var typeDescs []string
	for _, objType := range objectTypes {
		if mapped, ok := objectTypeFilters[objType]; ok {
			for _, td := range mapped {
				typeDescs = append(typeDescs, "'"+td+"'")
			}
		}
	}
	if len(typeDescs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
	SELECT
		SCHEMA_NAME(o.schema_id) as schema_name,
		o.name as object_name,
		o.type_desc as object_type
	FROM
		sys.objects o
	WHERE
		o.type_desc IN (%s)
		AND o.is_ms_shipped = 0
	ORDER BY
		o.type_desc, o.name
	`, strings.Join(typeDescs, ", "))

	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []compare.SchemaObject
	for rows.Next() {
		var obj compare.SchemaObject
		if err := rows.Scan(&obj.Schema, &obj.Name, &obj.Type); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// GetObjectDefinition scripts one object. Tables are assembled from the
// catalog views; views, procedures, functions and triggers come straight
// from sys.sql_modules.
func (d *Database) GetObjectDefinition(ctx context.Context, obj compare.SchemaObject) (string, error) {
	if obj.Type == "USER_TABLE" {
		return d.getTableDefinition(ctx, obj)
	}

	query := `
	SELECT definition
	FROM sys.sql_modules m
	JOIN sys.objects o ON m.object_id = o.object_id
	WHERE o.name = @name AND SCHEMA_NAME(o.schema_id) = @schema
	`

	var definition string
	err := d.DB.QueryRowContext(ctx, query,
		sql.Named("name", obj.Name), sql.Named("schema", obj.Schema)).Scan(&definition)
	if err != nil {
		return "", err
	}
	return definition, nil
}

func (d *Database) getTableDefinition(ctx context.Context, obj compare.SchemaObject) (string, error) {
	tableQuery := `
	WITH IndexCTE AS (
		SELECT
			ic.object_id,
			ic.index_id,
			i.name AS index_name,
			i.type_desc AS index_type,
			i.is_primary_key,
			i.is_unique_constraint,
			(
				SELECT c.name + ','
				FROM sys.index_columns ic2
				JOIN sys.columns c ON ic2.object_id = c.object_id AND ic2.column_id = c.column_id
				WHERE ic2.object_id = ic.object_id AND ic2.index_id = ic.index_id
				ORDER BY ic2.key_ordinal
				FOR XML PATH('')
			) AS columns
		FROM
			sys.indexes i
		JOIN
			sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		WHERE
			i.name IS NOT NULL
		GROUP BY
			ic.object_id, ic.index_id, i.name, i.type_desc, i.is_primary_key, i.is_unique_constraint
	)
	SELECT
		'CREATE TABLE [' + SCHEMA_NAME(t.schema_id) + '].[' + t.name + '] (' + CHAR(10) +
		(
			SELECT
				'    [' + c.name + '] ' +
				CASE
					WHEN c.is_computed = 1 THEN 'AS ' + cc.definition
					ELSE
						'[' + tp.name + ']' +
						CASE
							WHEN tp.name IN ('varchar', 'nvarchar', 'char', 'nchar') THEN '(' +
								CASE WHEN c.max_length = -1 THEN 'MAX'
								ELSE
									CASE WHEN tp.name IN ('nvarchar', 'nchar')
										THEN CAST(c.max_length/2 AS VARCHAR(10))
										ELSE CAST(c.max_length AS VARCHAR(10))
									END
								END + ')'
							WHEN tp.name IN ('decimal', 'numeric') THEN '(' + CAST(c.precision AS VARCHAR(10)) + ', ' + CAST(c.scale AS VARCHAR(10)) + ')'
							ELSE ''
						END +
						CASE WHEN c.is_identity = 1
							THEN ' IDENTITY(' +
								CAST(IDENT_SEED(SCHEMA_NAME(t.schema_id) + '.' + t.name) AS VARCHAR(10)) + ',' +
								CAST(IDENT_INCR(SCHEMA_NAME(t.schema_id) + '.' + t.name) AS VARCHAR(10)) + ')'
							ELSE ''
						END +
						CASE WHEN c.is_nullable = 1 THEN ' NULL' ELSE ' NOT NULL' END
				END +
				CASE WHEN c.column_id = (SELECT MAX(column_id) FROM sys.columns c2 WHERE c2.object_id = t.object_id) AND
					NOT EXISTS (SELECT 1 FROM sys.indexes i WHERE i.object_id = t.object_id AND i.is_primary_key = 1)
					THEN ''
					ELSE ','
				END + CHAR(10)
			FROM
				sys.columns c
			LEFT JOIN
				sys.types tp ON c.user_type_id = tp.user_type_id
			LEFT JOIN
				sys.computed_columns cc ON c.object_id = cc.object_id AND c.column_id = cc.column_id
			WHERE
				c.object_id = t.object_id
			ORDER BY
				c.column_id
			FOR XML PATH('')
		) +
		ISNULL((
			SELECT
				CASE
					WHEN i.is_primary_key = 1 THEN '    CONSTRAINT [' + i.index_name + '] PRIMARY KEY ' +
						CASE WHEN i.index_type LIKE '%CLUSTER%' THEN 'CLUSTERED' ELSE 'NONCLUSTERED' END +
						' (' + ISNULL(STUFF(i.columns, LEN(i.columns), 1, ''), '') + ')' + CHAR(10)
					WHEN i.is_unique_constraint = 1 THEN '    CONSTRAINT [' + i.index_name + '] UNIQUE ' +
						CASE WHEN i.index_type LIKE '%CLUSTER%' THEN 'CLUSTERED' ELSE 'NONCLUSTERED' END +
						' (' + ISNULL(STUFF(i.columns, LEN(i.columns), 1, ''), '') + ')' + CHAR(10)
					ELSE ''
				END
			FROM
				IndexCTE i
			WHERE
				i.object_id = t.object_id
			AND
				(i.is_primary_key = 1 OR i.is_unique_constraint = 1)
			FOR XML PATH('')
		), '') +
		');'
	FROM
		sys.tables t
	WHERE
		t.name = @name AND SCHEMA_NAME(t.schema_id) = @schema
	`

	var definition string
	err := d.DB.QueryRowContext(ctx, tableQuery,
		sql.Named("name", obj.Name), sql.Named("schema", obj.Schema)).Scan(&definition)
	if err != nil {
		return "", err
	}
	return definition, nil
}

// ConstraintScript is one table-level constraint with its ALTER script,
// used as a child difference under the table.
type ConstraintScript struct {
	Name   string
	Script string
}

// GetConstraintScripts returns the foreign key and default constraints of a
// table as individual ALTER TABLE scripts, ordered by constraint name.
func (d *Database) GetConstraintScripts(ctx context.Context, obj compare.SchemaObject) ([]ConstraintScript, error) {
	fkQuery := `
	SELECT
		fk.name,
		'ALTER TABLE [' + SCHEMA_NAME(tab.schema_id) + '].[' + tab.name + '] WITH CHECK ADD CONSTRAINT [' +
		fk.name + '] FOREIGN KEY([' +
		ISNULL(STUFF((
			SELECT ',' + COL_NAME(fkc.parent_object_id, fkc.parent_column_id)
			FROM sys.foreign_key_columns fkc
			WHERE fkc.constraint_object_id = fk.object_id
			ORDER BY fkc.constraint_column_id
			FOR XML PATH('')
		), 1, 1, ''), '') + '])' +
		CHAR(10) + 'REFERENCES [' + SCHEMA_NAME(ref_tab.schema_id) + '].[' + ref_tab.name + '] ([' +
		ISNULL(STUFF((
			SELECT ',' + COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id)
			FROM sys.foreign_key_columns fkc
			WHERE fkc.constraint_object_id = fk.object_id
			ORDER BY fkc.constraint_column_id
			FOR XML PATH('')
		), 1, 1, ''), '') + ']);' + CHAR(10)
	FROM
		sys.foreign_keys fk
	JOIN
		sys.tables tab ON fk.parent_object_id = tab.object_id
	JOIN
		sys.tables ref_tab ON fk.referenced_object_id = ref_tab.object_id
	WHERE
		tab.name = @name AND SCHEMA_NAME(tab.schema_id) = @schema
	ORDER BY fk.name
	`

	defaultsQuery := `
	SELECT
		dc.name,
		'ALTER TABLE [' + SCHEMA_NAME(t.schema_id) + '].[' + t.name + '] ADD CONSTRAINT [' +
		dc.name + '] DEFAULT ' + dc.definition + ' FOR [' + c.name + '];' + CHAR(10)
	FROM
		sys.columns c
	JOIN
		sys.default_constraints dc ON c.default_object_id = dc.object_id
	JOIN
		sys.tables t ON c.object_id = t.object_id
	WHERE
		t.name = @name AND SCHEMA_NAME(t.schema_id) = @schema
	ORDER BY dc.name
	`

	var constraints []ConstraintScript
	for _, query := range []string{fkQuery, defaultsQuery} {
		rows, err := d.DB.QueryContext(ctx, query,
			sql.Named("name", obj.Name), sql.Named("schema", obj.Schema))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var cs ConstraintScript
			if err := rows.Scan(&cs.Name, &cs.Script); err != nil {
				rows.Close()
				return nil, err
			}
			constraints = append(constraints, cs)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return constraints, nil
}

// GetDropStatement scripts the removal of an object, constraints first for
// tables.
func (d *Database) GetDropStatement(ctx context.Context, obj compare.SchemaObject) (string, error) {
	switch obj.Type {
	case "USER_TABLE":
		return d.getTableDropStatement(ctx, obj)
	case "VIEW":
		return objectDrop(obj, "V", "VIEW"), nil
	case "SQL_STORED_PROCEDURE":
		return objectDrop(obj, "P", "PROCEDURE"), nil
	case "SQL_SCALAR_FUNCTION", "SQL_INLINE_TABLE_VALUED_FUNCTION", "SQL_TABLE_VALUED_FUNCTION":
		return objectDrop(obj, "FN", "FUNCTION"), nil
	case "SQL_TRIGGER":
		return objectDrop(obj, "TR", "TRIGGER"), nil
	}
	return fmt.Sprintf("-- Unknown object type: %s. It must be deleted manually.", obj.Type), nil
}

func objectDrop(obj compare.SchemaObject, objectIDType, keyword string) string {
	return fmt.Sprintf("IF OBJECT_ID('[%s].[%s]', '%s') IS NOT NULL DROP %s [%s].[%s];",
		obj.Schema, obj.Name, objectIDType, keyword, obj.Schema, obj.Name)
}

func (d *Database) getTableDropStatement(ctx context.Context, obj compare.SchemaObject) (string, error) {
	query := `
	SELECT
		ISNULL(STUFF((
			SELECT CHAR(10) + 'ALTER TABLE [' + SCHEMA_NAME(tab.schema_id) + '].[' + tab.name + '] DROP CONSTRAINT [' + fk.name + ']' + CHAR(10) + 'GO' + CHAR(10)
			FROM sys.foreign_keys fk
			JOIN sys.tables tab ON fk.parent_object_id = tab.object_id
			WHERE tab.name = @name AND SCHEMA_NAME(tab.schema_id) = @schema
			FOR XML PATH('')
		), 1, 1, ''), '') +
		ISNULL(STUFF((
			SELECT CHAR(10) + 'ALTER TABLE [' + SCHEMA_NAME(t.schema_id) + '].[' + t.name + '] DROP CONSTRAINT [' + dc.name + ']' + CHAR(10) + 'GO' + CHAR(10)
			FROM sys.tables t
			JOIN sys.default_constraints dc ON t.object_id = dc.parent_object_id
			WHERE t.name = @name AND SCHEMA_NAME(t.schema_id) = @schema
			FOR XML PATH('')
		), 1, 1, ''), '') +
		CHAR(10) + 'IF OBJECT_ID(''[' + @schema + '].[' + @name + ']'', ''U'') IS NOT NULL' + CHAR(10) +
		'DROP TABLE [' + @schema + '].[' + @name + ']' + CHAR(10)
	`

	var dropStatement string
	err := d.DB.QueryRowContext(ctx, query,
		sql.Named("name", obj.Name), sql.Named("schema", obj.Schema)).Scan(&dropStatement)
	if err != nil {
		return "", err
	}
	return dropStatement, nil
}
