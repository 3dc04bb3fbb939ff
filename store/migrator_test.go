package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQL(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (id TEXT); -- trailing
/* block
comment */
INSERT INTO a VALUES ('x;y');
CREATE FUNCTION f() RETURNS void AS $$
BEGIN
  PERFORM 1;
END;
$$ LANGUAGE plpgsql;
SELECT 1`

	statements := splitSQL(script)
	assert.Len(t, statements, 4)
	assert.Equal(t, "CREATE TABLE a (id TEXT);", statements[0])
	assert.Equal(t, "INSERT INTO a VALUES ('x;y');", statements[1])
	assert.Contains(t, statements[2], "PERFORM 1;")
	assert.Contains(t, statements[2], "LANGUAGE plpgsql;")
	assert.Equal(t, "SELECT 1", statements[3])
}

func TestShouldApplyMigration(t *testing.T) {
	assert.True(t, shouldApplyMigration("0.2.1", "", "0.2.1"))
	assert.True(t, shouldApplyMigration("0.2.1", "0.1.9", "0.2.1"))
	assert.False(t, shouldApplyMigration("0.2.1", "0.2.1", "0.2.1"))
	assert.False(t, shouldApplyMigration("0.3.1", "0.2.1", "0.2.5"))
}

func TestValidateMigrationFileName(t *testing.T) {
	assert.NoError(t, validateMigrationFileName("00__memory_embedding.sql"))
	assert.Error(t, validateMigrationFileName("memory_embedding.sql"))
	assert.Error(t, validateMigrationFileName("xx__memory_embedding.sql"))
}

func TestGetSchemaVersionOfMigrateScript(t *testing.T) {
	s := &Store{}
	v, err := s.getSchemaVersionOfMigrateScript("migration/sqlite/0.2/00__memory_embedding.sql")
	assert.NoError(t, err)
	assert.Equal(t, "0.2.1", v)

	_, err = s.getSchemaVersionOfMigrateScript("migration/sqlite/0.2/ab__x.sql")
	assert.Error(t, err)
}
